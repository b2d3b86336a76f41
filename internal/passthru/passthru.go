// Package passthru binds SAE J2534 (Passthru 04.04) vendor driver
// libraries. Drivers are enumerated from the host's Passthru registry,
// loaded from the library path each entry advertises, and exposed through
// the hardware.Driver / hardware.Channel contracts.
//
// Everything that touches the native function table is windows-only; the
// wire layout, status taxonomy and registry/store types are portable so the
// rest of the module (and its tests) compile everywhere.
package passthru

// J2534 protocol IDs (PassThruConnect).
const (
	protocolJ1850VPW = 1
	protocolJ1850PWM = 2
	protocolISO9141  = 3
	protocolISO14230 = 4
	protocolCAN      = 5
	protocolISO15765 = 6
)

// Connect / TxFlags / RxStatus bits. CAN29BitID is the only bit shared by
// all three words.
const (
	flagCAN29BitID = 0x00000100
	flagCANIDBoth  = 0x00000800

	rxStatusTxEcho = 0x00000001 // loopback of a frame this channel sent
)

// Filter types (PassThruStartMsgFilter).
const (
	passFilter        = 1
	blockFilter       = 2
	flowControlFilter = 3
)

// Ioctl IDs used here.
const (
	ioctlClearTxBuffer  = 7
	ioctlClearRxBuffer  = 8
	ioctlClearMsgFilter = 10
)

// requiredVersionPrefix is the Passthru API generation this package speaks.
// Drivers reporting anything else are rejected as incompatible.
const requiredVersionPrefix = "04.04"
