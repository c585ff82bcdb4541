package services

import (
	"strings"

	"github.com/mssola/useragent"
)

// ClientInfo is the browser and operating system recorded with a login
type ClientInfo struct {
	Browser string
	OS      string
}

// ClientInfoParser extracts client details from a raw user-agent header
type ClientInfoParser interface {
	Parse(userAgent string) ClientInfo
}

const unknownClient = "Unknown"

// UserAgentParser implements ClientInfoParser on top of mssola/useragent
type UserAgentParser struct{}

// NewUserAgentParser creates a new UserAgentParser
func NewUserAgentParser() *UserAgentParser {
	return &UserAgentParser{}
}

// Parse never fails; missing parts are reported as "Unknown"
func (p *UserAgentParser) Parse(userAgent string) ClientInfo {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return ClientInfo{Browser: unknownClient, OS: unknownClient}
	}

	ua := useragent.New(userAgent)

	info := ClientInfo{Browser: unknownClient, OS: unknownClient}
	if name, version := ua.Browser(); name != "" {
		info.Browser = strings.TrimSpace(name + " " + majorVersion(version))
	}
	if os := ua.OS(); os != "" {
		info.OS = os
	}

	return info
}

func majorVersion(version string) string {
	if i := strings.IndexByte(version, '.'); i > 0 {
		return version[:i]
	}
	return version
}
