package types

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidEndpoint 无效的端点
var ErrInvalidEndpoint = errors.New("types: invalid endpoint")

// 端点传输方案
const (
	SchemeTCP  = "tcp"
	SchemeUDP  = "udp"
	SchemeUnix = "unix"
)

// Endpoint 可达地址描述
//
// 网络端点: scheme://host:port，例如 tcp://10.0.0.5:9000
// 本地端点: unix:///path/to/socket（绝对路径）
// 相对路径与抽象套接字: unix:relative/sock、unix:@name
//
// 字符串形式可无损往返：ParseEndpoint(e.String()) == e。
type Endpoint struct {
	// Scheme 传输方案（tcp/udp/unix）
	Scheme string

	// Host 主机地址（网络端点）
	Host string

	// Port 端口（网络端点）
	Port int

	// Path 本地路径（本地端点）
	Path string
}

// NewNetEndpoint 创建网络端点
func NewNetEndpoint(scheme, host string, port int) Endpoint {
	return Endpoint{Scheme: scheme, Host: host, Port: port}
}

// NewLocalEndpoint 创建本地（unix 域）端点
func NewLocalEndpoint(path string) Endpoint {
	return Endpoint{Scheme: SchemeUnix, Path: path}
}

// EndpointFromAddr 从 net.Addr 构造端点
func EndpointFromAddr(addr net.Addr) (Endpoint, error) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return NewNetEndpoint(SchemeTCP, a.IP.String(), a.Port), nil
	case *net.UDPAddr:
		return NewNetEndpoint(SchemeUDP, a.IP.String(), a.Port), nil
	case *net.UnixAddr:
		if a.Name == "" {
			return Endpoint{}, fmt.Errorf("%w: unnamed unix socket", ErrInvalidEndpoint)
		}
		return NewLocalEndpoint(a.Name), nil
	default:
		return Endpoint{}, fmt.Errorf("%w: unsupported address %T", ErrInvalidEndpoint, addr)
	}
}

// ParseEndpoint 解析端点字符串
func ParseEndpoint(s string) (Endpoint, error) {
	if s == "" {
		return Endpoint{}, fmt.Errorf("%w: empty", ErrInvalidEndpoint)
	}
	if len(s) > len(SchemeUnix) && strings.EqualFold(s[:len(SchemeUnix)+1], SchemeUnix+":") {
		return parseLocal(s, s[len(SchemeUnix)+1:])
	}

	u, err := url.Parse(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case SchemeTCP, SchemeUDP:
		host, portStr, err := net.SplitHostPort(u.Host)
		if err != nil {
			return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 0 || port > 65535 {
			return Endpoint{}, fmt.Errorf("%w: bad port %q", ErrInvalidEndpoint, portStr)
		}
		if host == "" {
			return Endpoint{}, fmt.Errorf("%w: missing host in %q", ErrInvalidEndpoint, s)
		}
		return NewNetEndpoint(scheme, host, port), nil

	default:
		return Endpoint{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}
}

// parseLocal 解析 unix 端点
//
// 路径按字面保留，不做 URL 转义处理。带主机部分的形式（unix://host/path）被拒绝，
// 只有 unix://@name 作为抽象套接字的写法接受。
func parseLocal(s, rest string) (Endpoint, error) {
	if after, ok := strings.CutPrefix(rest, "//"); ok {
		switch {
		case strings.HasPrefix(after, "/"), strings.HasPrefix(after, "@"):
			rest = after
		case after == "":
			rest = ""
		default:
			return Endpoint{}, fmt.Errorf("%w: unexpected host in %q", ErrInvalidEndpoint, s)
		}
	}
	if rest == "" {
		return Endpoint{}, fmt.Errorf("%w: missing path in %q", ErrInvalidEndpoint, s)
	}
	return NewLocalEndpoint(rest), nil
}

// MustParseEndpoint 解析端点，失败时 panic（用于常量和测试）
func MustParseEndpoint(s string) Endpoint {
	e, err := ParseEndpoint(s)
	if err != nil {
		panic(err)
	}
	return e
}

// IsLocal 是否为本地端点
func (e Endpoint) IsLocal() bool {
	return e.Scheme == SchemeUnix
}

// IsZero 是否为空端点
func (e Endpoint) IsZero() bool {
	return e == Endpoint{}
}

// Network 返回 net.Dial 使用的网络名
func (e Endpoint) Network() string {
	return e.Scheme
}

// Address 返回 net.Dial 使用的地址
func (e Endpoint) Address() string {
	if e.IsLocal() {
		return e.Path
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// String 返回端点字符串形式
func (e Endpoint) String() string {
	if e.IsZero() {
		return ""
	}
	if e.IsLocal() {
		if strings.HasPrefix(e.Path, "/") {
			return SchemeUnix + "://" + e.Path
		}
		return SchemeUnix + ":" + e.Path
	}
	return e.Scheme + "://" + e.Address()
}

// MarshalText 实现 encoding.TextMarshaler
func (e Endpoint) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (e *Endpoint) UnmarshalText(data []byte) error {
	parsed, err := ParseEndpoint(string(data))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
