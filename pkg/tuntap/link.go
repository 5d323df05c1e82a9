package tuntap

// LinkOptions holds settings applied by ConfigureLink
type LinkOptions struct {
	mtu int
	up  bool
}

// WithMTU sets the interface MTU
func WithMTU(mtu int) func(*LinkOptions) {
	return func(o *LinkOptions) {
		o.mtu = mtu
	}
}

// WithLinkUp sets the interface administratively up
func WithLinkUp() func(*LinkOptions) {
	return func(o *LinkOptions) {
		o.up = true
	}
}
