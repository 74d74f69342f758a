package main

import (
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/cmd/cookcounty/commands"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
