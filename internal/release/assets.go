package release

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/platform"
)

// AssetResolver maps a concrete release tag to the asset file name to fetch.
// It is called again with the new tag on every upgrade, so resolvers for
// assets whose names embed the version stay correct across releases.
type AssetResolver interface {
	ResolveAsset(ctx context.Context, tag string) (string, error)
}

// AssetNameFunc adapts a plain tag → filename function.
type AssetNameFunc func(tag string) string

// ResolveAsset implements AssetResolver.
func (f AssetNameFunc) ResolveAsset(_ context.Context, tag string) (string, error) {
	name := f(tag)
	if name == "" {
		return "", fmt.Errorf("asset name for %s is empty", tag)
	}
	return name, nil
}

var platformPlaceholder = regexp.MustCompile(`\{(os|arch|uname_arch|exe)\}`)

// AssetTemplate expands placeholders in a file name:
//
//	{tag}         the release tag as published, e.g. "v1.2.3"
//	{version}     the tag without a leading "v", e.g. "1.2.3"
//	{os}          platform OS, e.g. "linux"
//	{arch}        normalized architecture, e.g. "amd64"
//	{uname_arch}  uname-style architecture, e.g. "x86_64"
//	{exe}         ".exe" on Windows, empty elsewhere
type AssetTemplate struct {
	Template string
	Platform *platform.Info
}

// ResolveAsset implements AssetResolver.
func (t AssetTemplate) ResolveAsset(_ context.Context, tag string) (string, error) {
	if strings.TrimSpace(t.Template) == "" {
		return "", errors.New("asset template is empty")
	}

	pairs := []string{
		"{tag}", tag,
		"{version}", strings.TrimPrefix(tag, "v"),
	}
	if t.Platform != nil {
		pairs = append(pairs,
			"{os}", t.Platform.OS,
			"{arch}", t.Platform.Arch,
			"{uname_arch}", t.Platform.UnameArch,
			"{exe}", t.Platform.ExeSuffix())
	} else if platformPlaceholder.MatchString(t.Template) {
		return "", fmt.Errorf("asset template %q needs platform information", t.Template)
	}

	return strings.NewReplacer(pairs...).Replace(t.Template), nil
}

// AssetPattern picks the first asset of the release whose name matches a
// regular expression.
type AssetPattern struct {
	client  *Client
	repo    string
	pattern *regexp.Regexp
}

// NewAssetPattern compiles expr for matching assets of repo.
func NewAssetPattern(client *Client, repo, expr string) (*AssetPattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid asset pattern %q: %w", expr, err)
	}
	return &AssetPattern{client: client, repo: repo, pattern: re}, nil
}

// ResolveAsset implements AssetResolver.
func (p *AssetPattern) ResolveAsset(ctx context.Context, tag string) (string, error) {
	names, err := p.client.ReleaseAssets(ctx, p.repo, tag)
	if err != nil {
		return "", fmt.Errorf("list release assets: %w", err)
	}

	for _, name := range names {
		if p.pattern.MatchString(name) {
			return name, nil
		}
	}

	return "", &NoMatchingAssetError{Repo: p.repo, Tag: tag, Pattern: p.pattern.String()}
}
