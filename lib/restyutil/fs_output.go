package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
)

// FilesystemOutput writes every captured exchange to its own file under a
// directory, named after the message id.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput wipes and recreates dir.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	os.RemoveAll(dir)
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
