package valueobjects

import "fmt"

// Gateway identifies an external payment provider.
type Gateway string

const (
	GatewayStripe   Gateway = "stripe"
	GatewayRazorpay Gateway = "razorpay"
)

func (g Gateway) IsValid() bool {
	return g == GatewayStripe || g == GatewayRazorpay
}

func (g Gateway) String() string {
	return string(g)
}

func ParseGateway(s string) (Gateway, error) {
	g := Gateway(s)
	if !g.IsValid() {
		return "", fmt.Errorf("unsupported gateway: %q", s)
	}
	return g, nil
}
