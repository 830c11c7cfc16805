package manifest

// Lua schema field names and globals
const (
	luaGlobalRelfetch   = "relfetch"
	luaFieldInstalls    = "installs"
	luaFieldRepo        = "repo"
	luaFieldDir         = "dir"
	luaFieldVersion     = "version"
	luaFieldUpgrade     = "upgrade"
	luaFieldAsset       = "asset"
	luaFieldAssetRegexp = "asset_pattern"

	versionLatest = "latest"
)
