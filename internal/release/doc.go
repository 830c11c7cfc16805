// Package release installs assets published as GitHub releases into a
// local directory and keeps them up to date.
//
// # State
//
// Every install directory carries a version.json file recording the
// installed tag and the owning repository. The file is written only after
// the asset is fully in place, so its presence means a complete install.
// An install directory owned by another repository is never overwritten.
//
// # Usage
//
//	client := release.NewClient(release.WithHTTPClient(hc))
//	mgr, err := release.NewManager(release.Config{
//	    Repo:       "owner/tool",
//	    InstallDir: "./vendor/tool",
//	    Client:     client,
//	    Fetcher:    release.NewFetcher(release.WithFetchHTTPClient(hc)),
//	})
//	if err != nil {
//	    return err
//	}
//
//	res, err := mgr.Install(ctx, release.InstallRequest{
//	    Asset:        release.AssetTemplate{Template: "tool-{version}-{os}-{arch}.tar.gz", Platform: info},
//	    Version:      release.Latest(),
//	    AllowUpgrade: true,
//	})
//
// # Architecture
//
// The package is organized into several components:
//   - Manager: install/upgrade state machine around version.json
//   - Client: release metadata lookups with retry and download URL construction
//   - Fetcher: HTTP download to memory (archives) or disk (raw files) with progress
//   - Extractor: zip and tar.gz unpacking confined to the destination
//   - AssetResolver: tag to asset file name strategies
package release
