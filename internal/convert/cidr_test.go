package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandCIDR(t *testing.T) {
	tests := []struct {
		name string
		cidr string
		want []string
	}{
		{
			name: "ipv4 sixteen bit prefix",
			cidr: "192.168.0.0/16",
			want: []string{"192.168.*"},
		},
		{
			name: "ipv4 twenty four bit prefix",
			cidr: "10.11.12.0/24",
			want: []string{"10.11.12.*"},
		},
		{
			name: "ipv4 eight bit prefix",
			cidr: "10.0.0.0/8",
			want: []string{"10.*"},
		},
		{
			name: "ipv4 host route",
			cidr: "10.1.2.3/32",
			want: []string{"10.1.2.3"},
		},
		{
			name: "ipv4 prefix through an octet",
			cidr: "192.168.16.0/20",
			want: []string{
				"192.168.16.*", "192.168.17.*", "192.168.18.*", "192.168.19.*",
				"192.168.20.*", "192.168.21.*", "192.168.22.*", "192.168.23.*",
				"192.168.24.*", "192.168.25.*", "192.168.26.*", "192.168.27.*",
				"192.168.28.*", "192.168.29.*", "192.168.30.*", "192.168.31.*",
			},
		},
		{
			name: "ipv4 prefix through last octet",
			cidr: "10.0.0.0/30",
			want: []string{"10.0.0.0", "10.0.0.1", "10.0.0.2", "10.0.0.3"},
		},
		{
			name: "ipv4 unmasked address bits dropped",
			cidr: "192.168.1.77/24",
			want: []string{"192.168.1.*"},
		},
		{
			name: "ipv6 group boundary",
			cidr: "2001:db8::/32",
			want: []string{"2001:db8:*"},
		},
		{
			name: "ipv6 single group",
			cidr: "fe80::/16",
			want: []string{"fe80:*"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := expandCIDR(tc.cidr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExpandCIDRErrors(t *testing.T) {
	_, err := expandCIDR("not-a-cidr")
	assert.Error(t, err)

	_, err = expandCIDR("10.0.0.1")
	assert.Error(t, err)

	// IPv6 prefixes off the 16-bit group boundary have no wildcard form.
	_, err = expandCIDR("2001:db8::/35")
	assert.Error(t, err)
}
