// Package connectors provides access to document sources. The
// filesystem connector discovers audit-relevant files and bundles them
// into IOC groups; further source types plug in beside it.
package connectors
