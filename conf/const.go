// Package conf contains the tunable constants shared across the VM and
// engine packages: arena sizing, scheduler defaults, and bundle format
// versioning.
package conf

import "fmt"

const (
	// BUNDLESIGNATURE is an artifact written at the start of a dumped script
	// bundle so that we can detect foreign/corrupt data before decoding it.
	BUNDLESIGNATURE = "\x1bSVMB"
	// BUNDLEVERSION is the serialization format version for Script bundles.
	BUNDLEVERSION = "scratchvm-bundle-0.1.0"
	// BUNDLEFORMAT is the dump/undump format in case it ever changes.
	BUNDLEFORMAT = 0

	// REGISTERCOUNT is the fixed capacity of a VM's register arena.
	REGISTERCOUNT = 1024

	// INITIALLOOPDEPTH is the starting capacity of a VM's loop frame stack.
	INITIALLOOPDEPTH = 256
	// INITIALCALLDEPTH is the starting capacity of a VM's procedure call stack.
	INITIALCALLDEPTH = 256

	// DEFAULTFPS is the scheduler's default simulated frame rate.
	DEFAULTFPS = 30.0
	// WORKBUDGETFRACTION is the fraction of a frame duration threads may run
	// for in a single step before the scheduler yields to the host.
	WORKBUDGETFRACTION = 0.75
	// DEFAULTCLONELIMIT is the default maximum number of live clones; -1 means
	// unlimited.
	DEFAULTCLONELIMIT = 300
	// UNLIMITEDCLONES is the clone-limit sentinel meaning "no limit".
	UNLIMITEDCLONES = -1

	// DEFAULTSTAGEWIDTH and DEFAULTSTAGEHEIGHT are the classic Scratch stage
	// dimensions used when no configuration overrides them.
	DEFAULTSTAGEWIDTH  = 480
	DEFAULTSTAGEHEIGHT = 360

	// LISTHASHTHRESHOLD is the minimum list length at which List starts
	// maintaining a farm-hash membership index instead of scanning linearly.
	LISTHASHTHRESHOLD = 32
)

// FullVersion returns the bundle format version string, used in CLI banners
// and bundle-compatibility diagnostics.
func FullVersion() string {
	return fmt.Sprintf("%v (bundle format %v)", BUNDLEVERSION, BUNDLEFORMAT)
}
