//go:build chunkmgr_debug

package bitset

const debugChecks = true
