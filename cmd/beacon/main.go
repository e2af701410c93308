package main

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for an acoustic navigation beacon node.
 *
 * Description:	One binary, five ways to run it:
 *
 *		beacon set <address>	program the modem's address
 *		beacon active		range to the passive beacons and
 *					solve for our own position
 *		beacon passive		broadcast our position
 *		beacon timer <s> [addr]	diagnostic clock transmitter
 *		beacon report		diagnostic frame printer
 *
 *		With no mode argument the node runs whatever mode the
 *		config file assigns to its modem's address.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	seawolf "github.com/doismellburning/seawolf/src"
	"github.com/spf13/pflag"
)

func main() {

	var configFileName = pflag.StringP("config-file", "c", "config.yaml", "Network configuration file name.")
	var version = pflag.BoolP("version", "v", false, "Print version and exit.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - underwater acoustic navigation beacon.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: beacon [options] [set <address> | active | passive | timer <period_s> [target] | report]\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Without a mode argument, the mode comes from the config file entry\n")
		fmt.Fprintf(os.Stderr, "for this node's modem address.\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	if *version {
		seawolf.PrintVersion()
		os.Exit(0)
	}

	var mode = ""
	var args []string
	if pflag.NArg() > 0 {
		mode = pflag.Arg(0)
		args = pflag.Args()[1:]
	}

	if err := seawolf.Run(*configFileName, mode, args); err != nil {
		fmt.Fprintf(os.Stderr, "beacon: %v\n", err)
		os.Exit(1)
	}
}
