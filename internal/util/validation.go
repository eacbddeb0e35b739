package util

import (
	"net/http"
	"regexp"
	"strings"
)

var timeRe = regexp.MustCompile(`^(?:(\d{1,2}):)?(\d{1,2}):(\d{1,2}(?:\.\d+)?)$`)
var numRe = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ValidateTimeParam accepts plain seconds or hh:mm:ss(.ms) style values
// and returns "" for anything else.
func ValidateTimeParam(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if numRe.MatchString(value) {
		return value
	}
	if timeRe.MatchString(value) {
		return value
	}
	return ""
}

func GetClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return fwd
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
