// Package payload renders controller request bodies from named JSON
// templates.
//
// Templates are JSON documents with {{param}} placeholders inside string
// literals. Values are JSON-escaped on substitution, so an object name
// containing quotes or backslashes cannot change the document structure.
package payload

import (
	"bytes"
	"embed"
	"encoding/json"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

// Template names shipped with the package.
const (
	Login                          = "login"
	AddTenant                      = "add_tenant"
	AddAppProfile                  = "add_app_profile"
	AddEPG                         = "add_epg"
	AddVRF                         = "add_vrf"
	AddBridgeDomain                = "add_bridge_domain"
	AddVLANPool                    = "add_vlan_pool"
	AddVLANsToPool                 = "add_vlans_to_pool"
	AddPhysicalDomain              = "add_physical_domain"
	AddAttachEntityProfile         = "add_attach_entity_profile"
	AddAccessInterfacePolicyGroup  = "add_access_interface_policy_group"
	AddAccessInterfaceProfile      = "add_access_interface_profile"
	AddInterfaceSelector           = "add_interface_selector"
	AddSwitchProfile               = "add_switch_profile"
	AssociateInterfaceProfile      = "associate_interface_profile"
	AddStaticPort                  = "add_static_port"
	AddLACPProfile                 = "add_lacp_profile"
	AddPortChannelPolicyGroup      = "add_portchannel_policy_group"
	AddPortChannelInterfaceProfile = "add_portchannel_interface_profile"
	AddStaticPortChannel           = "add_static_portchannel"
	EditInterfaceNameDescription   = "edit_interface_name_description"
)

var (
	// ErrUnknownTemplate is returned when no template has the requested name.
	ErrUnknownTemplate = errors.New("unknown payload template")
	// ErrMissingParam is returned when a placeholder has no value.
	ErrMissingParam = errors.New("missing template parameter")
	// ErrInvalidPayload is returned when a rendered template is not valid JSON.
	ErrInvalidPayload = errors.New("rendered payload is not valid JSON")
)

//go:embed templates/*.json
var embedded embed.FS

// Renderer holds parsed templates keyed by name. It is safe for concurrent use.
type Renderer struct {
	templates map[string]*fasttemplate.Template
}

// New returns a renderer over the templates embedded in the package.
func New() (*Renderer, error) {
	return NewFromFS(embedded, "templates")
}

// NewFromFS loads every *.json file in dir of fsys. The template name is
// the file name without extension.
func NewFromFS(fsys fs.FS, dir string) (*Renderer, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read template directory %q", dir)
	}

	r := &Renderer{templates: make(map[string]*fasttemplate.Template, len(entries))}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}

		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read template %q", entry.Name())
		}

		tpl, err := fasttemplate.NewTemplate(string(raw), startTag, endTag)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse template %q", entry.Name())
		}

		r.templates[strings.TrimSuffix(entry.Name(), ".json")] = tpl
	}

	return r, nil
}

// Names lists the loaded template names in sorted order.
func (r *Renderer) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render substitutes params into the named template and returns the JSON body.
func (r *Renderer) Render(name string, params map[string]string) ([]byte, error) {
	tpl, ok := r.templates[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTemplate, "%q", name)
	}

	var buf bytes.Buffer
	_, err := tpl.ExecuteFunc(&buf, func(w io.Writer, tag string) (int, error) {
		key := strings.TrimSpace(tag)
		value, ok := params[key]
		if !ok {
			return 0, errors.Wrapf(ErrMissingParam, "%q in template %q", key, name)
		}
		return w.Write(escape(value))
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to render template %q", name)
	}

	out := buf.Bytes()
	if !json.Valid(out) {
		return nil, errors.Wrapf(ErrInvalidPayload, "template %q", name)
	}

	return out, nil
}

// escape returns value encoded as the inside of a JSON string literal.
func escape(value string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string never fails
	_ = enc.Encode(value)

	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return out[1 : len(out)-1]
}
