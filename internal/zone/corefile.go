package zone

import "text/template"

// corefileTemplate is the per-domain CoreDNS server block. The dnssec
// plugin signs responses online with the generated key pair, so the zone
// file itself stays unsigned on disk.
const corefileTemplate = `{{.Domain}} {
    file {{.ZoneFile}} {{.Domain}}
    dnssec {
        key file {{.KeyFile}}
    }
    errors
}
`

var corefileTmpl = template.Must(template.New("corefile").Parse(corefileTemplate))

// CorefileData feeds the Corefile fragment template. KeyFile is the DNSSEC
// key base path as reported by the key generation tool (no extension).
type CorefileData struct {
	Domain   string
	ZoneFile string
	KeyFile  string
}

// RenderCorefile renders the CoreDNS fragment for data.
func RenderCorefile(data CorefileData) (string, error) {
	return render(corefileTmpl, data)
}
