package password

import (
	"bufio"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"strings"

	"github.com/veletic/gatehouse/internal/domain"
	"github.com/veletic/gatehouse/pkg/config"
)

// BreachChecker queries a k-anonymity range service (the Pwned Passwords
// API shape): the password's SHA-1 digest is split after 5 hex characters,
// the prefix goes over the wire, and the response lists SUFFIX:COUNT pairs
// for every breached digest sharing that prefix.
type BreachChecker struct {
	baseURL string
	client  *http.Client
}

func NewBreachChecker(cfg config.BreachAPIConfig) *BreachChecker {
	return &BreachChecker{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// IsBreached reports whether plaintext appears in the breach corpus. Any
// failure to complete the lookup is returned as domain.ErrUpstream: the
// check never fails open.
func (b *BreachChecker) IsBreached(ctx context.Context, plaintext string) (bool, error) {
	digest := fmt.Sprintf("%X", sha1.Sum([]byte(plaintext)))
	prefix, suffix := digest[:5], digest[5:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/"+prefix, nil)
	if err != nil {
		return false, fmt.Errorf("%w: build breach lookup: %v", domain.ErrUpstream, err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: breach lookup: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: breach lookup returned status %d", domain.ErrUpstream, resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		got, _, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if strings.EqualFold(got, suffix) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("%w: read breach response: %v", domain.ErrUpstream, err)
	}

	return false, nil
}
