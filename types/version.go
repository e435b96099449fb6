package types

// Version is the canonical project version.
// The CLI, run reports and completion events share this version.
const Version = "0.1.0"

// ContractVersion is the version of the run-completed event and run report
// schemas. It moves in lockstep with Version.
const ContractVersion = Version
