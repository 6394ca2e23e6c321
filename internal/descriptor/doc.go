// Package descriptor owns raw socket handles: creation, option setup,
// binding, single non-blocking transfers and exactly-once release.
package descriptor
