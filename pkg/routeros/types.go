package routeros

// Queue is a simple queue row as returned by the device REST API. The device
// serializes every value as a string, including booleans.
type Queue struct {
	ID       string `json:".id"`
	Name     string `json:"name"`
	Target   string `json:"target"`
	MaxLimit string `json:"max-limit"`
	Comment  string `json:"comment,omitempty"`
	Disabled string `json:"disabled,omitempty"`
}

// IsDisabled interprets the device's string boolean. Listings use
// "true"/"false", older firmware writes "yes"/"no".
func (q Queue) IsDisabled() bool {
	return q.Disabled == "true" || q.Disabled == "yes"
}

// AddressListEntry is a firewall address-list row.
type AddressListEntry struct {
	ID      string `json:".id"`
	List    string `json:"list"`
	Address string `json:"address"`
	Comment string `json:"comment,omitempty"`
}

// Identity is the payload of the system identity probe.
type Identity struct {
	Name string `json:"name"`
}
