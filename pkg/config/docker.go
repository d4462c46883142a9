package config

import (
	"net"
	"net/url"
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the application is running inside a Docker container.
// Detection is based on the presence of /.dockerenv file which exists in all Docker containers.
// The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker returns "host.docker.internal" for a loopback host when running
// in Docker, so SQL sources on the host machine stay reachable. Other hosts are unchanged.
func ResolveHostForDocker(host string) string {
	if !IsRunningInDocker() {
		return host
	}
	return resolveLoopback(host)
}

func resolveLoopback(host string) string {
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}

// ResolveDSNForDocker applies ResolveHostForDocker to the host of a URL-style DSN
// (postgres://, sqlserver://). DSNs that do not parse as URLs are returned unchanged.
func ResolveDSNForDocker(dsn string) string {
	return rewriteDSNHost(dsn, ResolveHostForDocker)
}

func rewriteDSNHost(dsn string, resolve func(string) string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return dsn
	}
	host, port := u.Hostname(), u.Port()
	resolved := resolve(host)
	if resolved == host {
		return dsn
	}
	if port != "" {
		u.Host = net.JoinHostPort(resolved, port)
	} else {
		u.Host = resolved
	}
	return u.String()
}
