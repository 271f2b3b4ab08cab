package model

const (
	// CurrentSliceVersion indicates the version of the exported slice format
	//
	// Note that version numbering is an integer, not a semver string.
	CurrentSliceVersion uint64 = 1
)
