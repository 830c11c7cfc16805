// Package manifest loads Lua install manifests and applies them.
//
// A manifest declares a global relfetch table:
//
//	relfetch = {
//	  installs = {
//	    { repo = "owner/tool", dir = "vendor/tool",
//	      asset = function(tag) return "tool-" .. tag .. "-" .. platform.os .. ".tar.gz" end },
//	    { repo = "owner/other", dir = "vendor/other", version = "v1.2.3",
//	      asset = "other-{version}-{os}-{arch}.zip" },
//	    { repo = "owner/third", dir = "vendor/third", asset_pattern = "linux.*amd64" },
//	  },
//	}
//
// The VM is sandboxed: os, io, debug and every code-loading function are
// removed. A read-only platform table describes the host.
package manifest
