//go:build docker

package cli

// Container images are replaced by pulling a new tag, so the binary never
// upgrades itself.
func setupSelfUpgrade() {}
