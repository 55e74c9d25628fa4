package env

import (
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/tarm/serial"
)

// Link schemes.
const (
	SchemeSerial = "serial"
	SchemeTCP    = "tcp"
	SchemeListen = "listen"
)

// LinkSpec is a parsed link.
type LinkSpec struct {
	Scheme string
	// Address is the device path for serial ports or host:port.
	Address string
	Baud    int
}

// ParseLink parses a link. A link without scheme is a serial port.
func ParseLink(link string, baud int) (*LinkSpec, error) {
	if !strings.Contains(link, "://") {
		return &LinkSpec{Scheme: SchemeSerial, Address: link, Baud: baud}, nil
	}
	u, err := url.Parse(link)
	if err != nil {
		return nil, err
	}
	spec := &LinkSpec{Scheme: u.Scheme, Address: u.Host, Baud: baud}
	switch u.Scheme {
	case SchemeSerial:
		spec.Address = u.Host + u.Path
		if val := u.Query().Get("baud"); val != "" {
			if spec.Baud, err = strconv.Atoi(val); err != nil {
				return nil, fmt.Errorf("invalid baud %q", val)
			}
		}
	case SchemeTCP, SchemeListen:
	default:
		return nil, fmt.Errorf("unknown link scheme: %q", u.Scheme)
	}
	if spec.Address == "" {
		return nil, fmt.Errorf("missing address in link %q", link)
	}
	return spec, nil
}

// Open opens the link.
func (s *LinkSpec) Open() (io.ReadWriteCloser, error) {
	switch s.Scheme {
	case SchemeSerial:
		port, err := serial.OpenPort(&serial.Config{Name: s.Address, Baud: s.Baud})
		if err != nil {
			return nil, err
		}
		return port, nil
	case SchemeTCP:
		return net.Dial("tcp", s.Address)
	case SchemeListen:
		ln, err := net.Listen("tcp", s.Address)
		if err != nil {
			return nil, err
		}
		defer ln.Close()
		glog.Infof("waiting for connection on %s", ln.Addr())
		return ln.Accept()
	}
	return nil, fmt.Errorf("unknown link scheme: %q", s.Scheme)
}

func (s *LinkSpec) String() string {
	if s.Scheme == SchemeSerial {
		return fmt.Sprintf("%s@%d", s.Address, s.Baud)
	}
	return s.Scheme + "://" + s.Address
}

// OpenLink opens the configured link.
func (c *Config) OpenLink() (io.ReadWriteCloser, error) {
	spec, err := ParseLink(c.Link, c.Baud)
	if err != nil {
		return nil, err
	}
	conn, err := spec.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", spec, err)
	}
	glog.Infof("link %s opened", spec)
	return conn, nil
}

// MustOpenLink opens the link and fails on error.
func (c *Config) MustOpenLink() io.ReadWriteCloser {
	conn, err := c.OpenLink()
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}
