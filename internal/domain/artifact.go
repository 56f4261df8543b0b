package domain

import "path/filepath"

// dnssecAlgorithmTag is the fixed key-name infix for ECDSAP256SHA256
// (algorithm 13), the only algorithm we generate. dnssec-keygen appends a
// random 5-digit key tag after it, so key files are matched by glob.
const dnssecAlgorithmTag = "+013+"

// Layout holds the directories generated artifacts live in.
type Layout struct {
	CertDir     string
	ZoneDir     string
	KeyDir      string // DNSSEC key pairs
	CorefileDir string
	ProxyDir    string
}

// ArtifactSet is the fixed per-domain set of files the provisioning
// pipeline creates and the decommission pipeline removes.
type ArtifactSet struct {
	CertFile      string
	CertKeyFile   string
	ZoneFile      string
	CorefileFrag  string
	ProxyFrag     string
	DNSSECKeyGlob string // matches both .key and .private
}

// ForDomain computes the artifact locations for a domain name.
func (l Layout) ForDomain(name string) ArtifactSet {
	return ArtifactSet{
		CertFile:      filepath.Join(l.CertDir, name+".crt"),
		CertKeyFile:   filepath.Join(l.CertDir, name+".key"),
		ZoneFile:      filepath.Join(l.ZoneDir, name+".zone"),
		CorefileFrag:  filepath.Join(l.CorefileDir, name),
		ProxyFrag:     filepath.Join(l.ProxyDir, name+".caddy"),
		DNSSECKeyGlob: filepath.Join(l.KeyDir, "K"+name+"."+dnssecAlgorithmTag+"*"),
	}
}
