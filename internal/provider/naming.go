package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/edvin/sitebuilder/internal/model"
	"github.com/edvin/sitebuilder/internal/platform"
)

const maxSlugLength = 48

// GenerateDescriptiveProjectName derives the remote project name for a
// project. The same (title, userID) always yields the same name so repeated
// deployments land on one remote project.
func GenerateDescriptiveProjectName(title, userID string) string {
	slug := platform.Slugify(title, maxSlugLength)
	if slug == "" {
		slug = "site"
	}
	sum := sha256.Sum256([]byte(userID))
	return slug + "-" + hex.EncodeToString(sum[:])[:8]
}

// MapReadyState maps a provider readyState onto the local status vocabulary.
func MapReadyState(readyState string) string {
	switch strings.ToUpper(readyState) {
	case ReadyStateError, ReadyStateCanceled:
		return model.StatusFailed
	case ReadyStateReady:
		return model.StatusSuccess
	case ReadyStateQueued, ReadyStateInitializing, ReadyStateBuilding:
		return model.StatusBuilding
	default:
		return model.StatusDeploying
	}
}

// NormalizeURL prefixes https:// when u has no scheme. Empty stays empty.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}

// CanonicalURL returns the production alias https://{projectName}.{aliasDomain}
// when u is some other host under the alias domain (a per-deployment URL).
// URLs on any other domain, such as custom domains, are kept.
func CanonicalURL(u, projectName, aliasDomain string) string {
	u = NormalizeURL(u)
	if u == "" || projectName == "" || aliasDomain == "" {
		return u
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return u
	}
	canonicalHost := projectName + "." + aliasDomain
	if strings.EqualFold(parsed.Hostname(), canonicalHost) || !underDomain(parsed.Hostname(), aliasDomain) {
		return u
	}
	return "https://" + canonicalHost
}

func underDomain(host, domain string) bool {
	if domain == "" {
		return false
	}
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	return strings.HasSuffix(strings.ToLower(host), "."+strings.ToLower(domain))
}
