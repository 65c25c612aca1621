package fabric

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
)

// ObjectBody is the payload of a managed object: its attributes and any
// nested child objects.
type ObjectBody struct {
	Attributes map[string]string `json:"attributes"`
	Children   []ManagedObject   `json:"children,omitempty"`
}

// ManagedObject is a controller object keyed by its class name, e.g.
// {"fvTenant": {"attributes": {"dn": "uni/tn-T1", "name": "T1"}}}.
// A well-formed object has exactly one key.
type ManagedObject map[string]*ObjectBody

// Class returns the class name of the object. For malformed objects with
// several keys the lexically first class is returned.
func (m ManagedObject) Class() string {
	switch len(m) {
	case 0:
		return ""
	case 1:
		for class := range m {
			return class
		}
	}

	classes := make([]string, 0, len(m))
	for class := range m {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes[0]
}

// Body returns the body of the object, or nil if there is none.
func (m ManagedObject) Body() *ObjectBody {
	return m[m.Class()]
}

// Attr returns the named attribute, or "" when absent.
func (m ManagedObject) Attr(name string) string {
	body := m.Body()
	if body == nil {
		return ""
	}
	return body.Attributes[name]
}

// DN returns the distinguished name of the object.
func (m ManagedObject) DN() string { return m.Attr("dn") }

// Name returns the name attribute of the object.
func (m ManagedObject) Name() string { return m.Attr("name") }

// Children returns the nested child objects.
func (m ManagedObject) Children() []ManagedObject {
	body := m.Body()
	if body == nil {
		return nil
	}
	return body.Children
}

// Count is the controller's totalCount, which it encodes as a JSON string.
// Plain numbers are accepted too.
type Count int

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "invalid totalCount")
		}
		if s == "" {
			*c = 0
			return nil
		}
		data = []byte(s)
	}

	n, err := strconv.Atoi(string(data))
	if err != nil {
		return errors.Wrapf(err, "invalid totalCount %q", data)
	}

	*c = Count(n)
	return nil
}

// MarshalJSON encodes the count the way the controller does.
func (c Count) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.Itoa(int(c)))), nil
}

// Envelope is the controller's response wrapper.
type Envelope struct {
	TotalCount Count           `json:"totalCount"`
	Imdata     []ManagedObject `json:"imdata"`
}

// Objects returns Imdata, never nil.
func (e *Envelope) Objects() []ManagedObject {
	if e == nil || e.Imdata == nil {
		return []ManagedObject{}
	}
	return e.Imdata
}

// errorRecord returns the attributes of an error record in imdata[0].
func (e *Envelope) errorRecord() (map[string]string, bool) {
	if e == nil || len(e.Imdata) == 0 {
		return nil, false
	}

	body, ok := e.Imdata[0]["error"]
	if !ok || body == nil {
		return nil, false
	}

	return body.Attributes, true
}

// InterfaceDN identifies a physical switch interface.
type InterfaceDN struct {
	Pod       string
	Node      string
	Interface string
}

// BridgeDomain describes a bridge domain to create in a tenant.
type BridgeDomain struct {
	Name string
	// VRF is the name of the VRF the bridge domain binds to.
	VRF string
	// UnknownUnicastAction defaults to "flood".
	UnknownUnicastAction string
	// ARPFlood defaults to true.
	ARPFlood *bool
}

// VLANRange is a block of VLAN ids added to a pool.
type VLANRange struct {
	Pool string
	// AllocationMode of the pool, "static" when empty.
	AllocationMode string
	From           int
	To             int
}

// InterfaceSelector binds a port range of an access interface profile to a
// policy group.
type InterfaceSelector struct {
	ProfileDN     string
	Name          string
	Card          int // defaults to 1
	FromPort      int
	ToPort        int
	PolicyGroupDN string
}

// StaticPort binds an access port to an EPG on a VLAN.
type StaticPort struct {
	Pod    string // defaults to "1"
	LeafID string
	Port   string // e.g. "eth1/1"
	VLAN   int
	Mode   string // "regular" (default), "native" or "untagged"
}

// StaticPortChannel binds a port-channel to an EPG on a VLAN.
type StaticPortChannel struct {
	Pod             string // defaults to "1"
	LeafID          string
	PolicyGroupName string
	VLAN            int
	Mode            string
}
