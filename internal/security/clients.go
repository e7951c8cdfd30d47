package security

// In-memory client registry (replace with DB/config later)
type Client struct {
	ID      string
	Secret  string
	Perms   []string // e.g. {"payments.read","payments.write"}
	Enabled bool
}

var Clients = map[string]Client{
	"simulated-client": {ID: "simulated-client", Secret: "simulated-client-secret", Perms: []string{"payments.read", "payments.write", "refunds.write"}, Enabled: true},
	"svc-checkout-web": {ID: "svc-checkout-web", Secret: "web-secret", Perms: []string{"payments.read", "payments.write"}, Enabled: true},
	"svc-support-desk": {ID: "svc-support-desk", Secret: "desk-secret", Perms: []string{"payments.read", "refunds.write"}, Enabled: true},
	"svc-analytics":    {ID: "svc-analytics", Secret: "ana-secret", Perms: []string{"payments.read"}, Enabled: true},
}
