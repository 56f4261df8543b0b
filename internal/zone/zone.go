// Package zone renders the generated config artifacts: the authoritative
// zone file, the CoreDNS Corefile fragment, and the Caddy vhost fragment.
// text/template is used for rendering so template variables are clear and
// composable.
package zone

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

// zoneTemplate is the authoritative zone data for one domain. The TLSA
// record pins the issued certificate for DANE validation on port 443.
const zoneTemplate = `$ORIGIN {{.Domain}}.
$TTL 3600
@	IN	SOA	{{.NS}}. hostmaster.{{.Domain}}. (
		{{.Serial}} ; serial
		7200       ; refresh
		3600       ; retry
		1209600    ; expire
		3600 )     ; minimum
	IN	NS	{{.NS}}.
	IN	A	{{.A}}
	IN	AAAA	{{.AAAA}}
_443._tcp	IN	TLSA	{{.TLSA}}
www	IN	CNAME	{{.Domain}}.
`

var zoneTmpl = template.Must(template.New("zone").Parse(zoneTemplate))

// ZoneData feeds the zone file template. NS, A and AAAA come from the
// platform environment file; TLSA comes from the TLSA generation script.
type ZoneData struct {
	Domain string
	NS     string
	A      string
	AAAA   string
	TLSA   string
	Serial string
}

// Serial derives a zone serial from t in the conventional YYYYMMDDHH form.
func Serial(t time.Time) string {
	return t.UTC().Format("2006010215")
}

// RenderZone renders the zone file for data.
func RenderZone(data ZoneData) (string, error) {
	return render(zoneTmpl, data)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
