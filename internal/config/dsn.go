package config

import "strings"

// channelBindingParam is sent by some hosted Postgres providers in their
// connection URLs; lib/pq rejects it as an unknown runtime parameter.
const channelBindingParam = "channel_binding"

// CleanDatabaseURL strips every channel_binding query parameter from a
// connection URL and rebuilds the query string so that no trailing "?",
// doubled "&" or leading "?&" is left behind. Values without the parameter
// are returned trimmed but otherwise untouched. The query starts at the first
// "?" after the userinfo, so a "?" inside the password is left alone. The
// transform is idempotent.
func CleanDatabaseURL(raw string) string {
	url := strings.TrimSpace(raw)
	q := queryStart(url)
	if q < 0 {
		return url
	}
	base, query := url[:q], url[q+1:]

	kept := make([]string, 0, strings.Count(query, "&")+1)
	for _, param := range strings.Split(query, "&") {
		if param == "" {
			continue
		}
		if key, _, _ := strings.Cut(param, "="); key == channelBindingParam {
			continue
		}
		kept = append(kept, param)
	}

	if len(kept) == 0 {
		return base
	}
	return base + "?" + strings.Join(kept, "&")
}

// queryStart returns the index of the "?" opening the query that carries a
// channel_binding parameter, or -1 when there is no such parameter.
func queryStart(url string) int {
	param := -1
	for i := 0; i < len(url); {
		j := strings.Index(url[i:], channelBindingParam+"=")
		if j < 0 {
			break
		}
		if at := i + j; at > 0 && (url[at-1] == '?' || url[at-1] == '&') {
			param = at
			break
		}
		i += j + 1
	}
	if param < 0 {
		return -1
	}

	hostStart := strings.LastIndexByte(url[:param], '@') + 1
	q := strings.IndexByte(url[hostStart:param], '?')
	if q < 0 {
		return -1
	}
	return hostStart + q
}
