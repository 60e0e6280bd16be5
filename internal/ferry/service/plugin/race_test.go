//go:build race

package plugin

// boltdb/bolt v1.3.1 trips checkptr under the race detector.
const raceEnabled = true
