//go:build !windows

package main

// DPI awareness is a Windows concern.
func enableDPIAwareness() {}
