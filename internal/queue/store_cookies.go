package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"appdl/internal/media"
)

// ReplaceCookies swaps the stored cookie set for origin. Passing no cookies
// clears the origin.
func (s *Store) ReplaceCookies(ctx context.Context, origin string, cookies []media.Cookie) error {
	ctx = ensureContext(ctx)
	origin = strings.ToLower(strings.TrimSpace(origin))
	if origin == "" {
		return fmt.Errorf("replace cookies: empty origin")
	}
	now := formatTime(time.Now())
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin cookie tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM cookies WHERE origin = ?", origin); err != nil {
			return fmt.Errorf("clear cookies: %w", err)
		}
		for _, c := range cookies {
			path := c.Path
			if path == "" {
				path = "/"
			}
			domain := strings.ToLower(strings.TrimSpace(c.Domain))
			if domain == "" {
				domain = origin
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO cookies (origin, name, value, domain, path, expires, http_only, secure, same_site, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				origin, c.Name, c.Value, domain, path, c.Expires,
				boolToInt(c.HTTPOnly), boolToInt(c.Secure), nullableString(c.SameSite), now,
			); err != nil {
				return fmt.Errorf("insert cookie %s: %w", c.Name, err)
			}
		}
		return tx.Commit()
	})
}

// CookiesForHost returns every stored cookie whose domain covers host.
func (s *Store) CookiesForHost(ctx context.Context, host string) ([]media.Cookie, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT name, value, domain, path, expires, http_only, secure, COALESCE(same_site, '')
		 FROM cookies ORDER BY domain, path, name`)
	if err != nil {
		return nil, fmt.Errorf("query cookies: %w", err)
	}
	defer rows.Close()

	var out []media.Cookie
	for rows.Next() {
		var (
			c        media.Cookie
			httpOnly int
			secure   int
		)
		if err := rows.Scan(&c.Name, &c.Value, &c.Domain, &c.Path, &c.Expires, &httpOnly, &secure, &c.SameSite); err != nil {
			return nil, fmt.Errorf("scan cookie: %w", err)
		}
		if !domainMatches(host, c.Domain) {
			continue
		}
		c.HTTPOnly = httpOnly != 0
		c.Secure = secure != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func domainMatches(host, domain string) bool {
	domain = strings.TrimPrefix(domain, ".")
	if domain == "" || host == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain) || strings.HasSuffix(domain, "."+host)
}
