// Package gps turns GGA sentences found in child process output into
// map-marker updates.
//
// It is deliberately small:
//   - Decode GGA for validity, lat/lon and fix quality
//   - Map the fix quality to a marker color and title label
//   - Throttle updates, letting fix quality changes through immediately
package gps
