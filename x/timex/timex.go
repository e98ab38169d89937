package timex

import "time"

// PeriodFromHz returns the period of a clock at freqHz.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) time.Duration {
	if freqHz == 0 {
		freqHz = 1
	}
	return time.Duration(1_000_000_000 / uint64(freqHz))
}

// BytePeriod returns the wall time taken to clock one octet at freqHz.
func BytePeriod(freqHz uint32) time.Duration {
	return 8 * PeriodFromHz(freqHz)
}
