package repo

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

// ErrInvalidReference is returned for repository references that are not
// acceptable GitHub repository URLs
var ErrInvalidReference = errors.New("invalid repository reference")

// Reference identifies a GitHub repository
type Reference struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// String returns owner/repo
func (r Reference) String() string {
	return r.Owner + "/" + r.Repo
}

// URL returns the canonical https URL of the repository
func (r Reference) URL() string {
	return "https://github.com/" + r.Owner + "/" + r.Repo
}

var (
	referenceRegex = regexp.MustCompile(`^https://github\.com/([^/?#]+)/([^/?#]+?)(?:\.git)?/?$`)
	segmentRegex   = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

	traversalMarkers = []string{"..", "%2e", "%2f", "%5c", "\\", "./"}
	injectionMarkers = []string{"<", ">", `"`, "'", "`", "javascript:", "data:", "&#", "%3c", "%3e"}
	localNetwork     = regexp.MustCompile(`(?i)localhost|loopback|0\.0\.0\.0|\[?::1\]?|(^|[^0-9])(127|10)\.\d{1,3}\.\d{1,3}\.\d{1,3}|(^|[^0-9])192\.168\.\d{1,3}\.\d{1,3}|(^|[^0-9])172\.(1[6-9]|2\d|3[01])\.\d{1,3}\.\d{1,3}|(^|[^0-9])169\.254\.\d{1,3}\.\d{1,3}`)
)

// ParseRepositoryReference accepts only https://github.com/<owner>/<repo>,
// optionally followed by .git and/or a slash. On rejection it returns nil and
// an error wrapping ErrInvalidReference; the error never repeats the input.
func ParseRepositoryReference(rawURL string) (*Reference, error) {
	m := referenceRegex.FindStringSubmatch(strings.TrimSpace(rawURL))
	if m == nil {
		return nil, fmt.Errorf("%w: expected https://github.com/<owner>/<repo>", ErrInvalidReference)
	}

	owner, repo := m[1], m[2]
	if err := validateSegment("owner", owner); err != nil {
		return nil, err
	}
	if err := validateSegment("repository name", repo); err != nil {
		return nil, err
	}
	return &Reference{Owner: owner, Repo: repo}, nil
}

func validateSegment(label, segment string) error {
	lower := strings.ToLower(segment)

	for _, marker := range traversalMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s contains a path traversal sequence", ErrInvalidReference, label)
		}
	}
	for _, marker := range injectionMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s contains markup or script characters", ErrInvalidReference, label)
		}
	}
	if strings.HasPrefix(segment, "-") {
		return fmt.Errorf("%w: %s must not start with a hyphen", ErrInvalidReference, label)
	}
	if localNetwork.MatchString(segment) || isPrivateAddress(segment) {
		return fmt.Errorf("%w: %s refers to a local or private network address", ErrInvalidReference, label)
	}
	if !segmentRegex.MatchString(segment) {
		return fmt.Errorf("%w: %s contains unsupported characters", ErrInvalidReference, label)
	}
	return nil
}

func isPrivateAddress(segment string) bool {
	ip := net.ParseIP(strings.Trim(segment, "[]"))
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast()
}
