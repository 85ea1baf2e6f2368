// Package whatsapp resolves click-to-chat channels and records outbound messages
package whatsapp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/ttacon/libphonenumber"
)

// DefaultLinkBase is the click-to-chat endpoint
const DefaultLinkBase = "https://wa.me"

// ErrInvalidPhone is returned for numbers that cannot be dialled in E.164 form
var ErrInvalidPhone = errors.New("invalid phone number")

// ChannelResolver implements port.ChannelResolver
type ChannelResolver struct {
	defaultRegion string
	linkBase      string
}

// NewChannelResolver creates a resolver that reads national numbers in
// defaultRegion (an ISO 3166 code such as "IN")
func NewChannelResolver(defaultRegion, linkBase string) *ChannelResolver {
	if linkBase == "" {
		linkBase = DefaultLinkBase
	}
	return &ChannelResolver{
		defaultRegion: strings.ToUpper(defaultRegion),
		linkBase:      strings.TrimRight(linkBase, "/"),
	}
}

// Resolve normalises phone to E.164 and builds a prefilled chat link
func (r *ChannelResolver) Resolve(phone, message string) (*port.Channel, error) {
	e164, err := r.Normalize(phone)
	if err != nil {
		return nil, err
	}

	link := r.linkBase + "/" + strings.TrimPrefix(e164, "+")
	if message != "" {
		link += "?text=" + strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	}

	return &port.Channel{
		Kind:    port.ChannelWhatsApp,
		Address: e164,
		Link:    link,
	}, nil
}

// Normalize returns phone in E.164 form
func (r *ChannelResolver) Normalize(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPhone)
	}
	num, err := libphonenumber.Parse(phone, r.defaultRegion)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidPhone, phone, err)
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", fmt.Errorf("%w %q", ErrInvalidPhone, phone)
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

var _ port.ChannelResolver = (*ChannelResolver)(nil)
