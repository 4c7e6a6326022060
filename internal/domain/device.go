package domain

// Vendor identifies the command dialect spoken by a device.
type Vendor string

const (
	VendorProCurve Vendor = "hp_procurve"
	VendorArubaOS  Vendor = "aruba_os"
	VendorHuawei   Vendor = "huawei"
	VendorComware  Vendor = "hp_comware"
	// VendorComwareGeneric matches devices that announce a Comware platform
	// without an HP/HPE marker (H3C and rebadged gear).
	VendorComwareGeneric Vendor = "comware"
	VendorUnknown        Vendor = "unknown"
)

// Known reports whether discovery identified a concrete dialect.
func (v Vendor) Known() bool {
	return v != "" && v != VendorUnknown
}

// ComwareFamily reports whether the dialect uses Comware-style commands
// (display ..., screen-length paging).
func (v Vendor) ComwareFamily() bool {
	return v == VendorComware || v == VendorComwareGeneric || v == VendorHuawei
}

// Device is one audited network element. Address comes from the input device
// list; the remaining fields are filled in by platform discovery and are not
// touched again afterwards.
type Device struct {
	Address  string `json:"address"`
	Hostname string `json:"hostname,omitempty"`
	Vendor   Vendor `json:"vendor,omitempty"`
	Model    string `json:"model,omitempty"`
	Version  string `json:"version,omitempty"`
	Firmware string `json:"firmware,omitempty"`
}

// ApplyPlatform records the discovery outcome on the device. A hostname from
// the input list is kept when discovery found none.
func (d *Device) ApplyPlatform(info *PlatformInfo) {
	if info == nil {
		return
	}

	d.Vendor = info.Vendor
	if info.Hostname != "" {
		d.Hostname = info.Hostname
	}
	d.Model = info.Model
	d.Version = info.Version
	d.Firmware = info.Firmware
}

// PlatformInfo is the result of platform discovery on one open connection.
type PlatformInfo struct {
	Vendor   Vendor `json:"vendor"`
	Hostname string `json:"hostname,omitempty"`
	Model    string `json:"model,omitempty"`
	Version  string `json:"version,omitempty"`
	Firmware string `json:"firmware,omitempty"`

	// ProbeCommand is the version query that produced Raw, kept so rules can
	// reuse the output without re-issuing the command.
	ProbeCommand string `json:"probe_command,omitempty"`
	Raw          string `json:"-"`
}

// Credentials are CLI login secrets, borrowed from the caller. They are opaque
// to the engine and must never appear in logs or serialized output.
type Credentials struct {
	Username string `json:"-"`
	Password string `json:"-"`
}

// SNMPCredentials hold the SNMPv3 USM parameters for the SNMP reachability
// rule. Treated as opaque secrets like Credentials.
type SNMPCredentials struct {
	User         string `json:"-"`
	AuthKey      string `json:"-"`
	PrivKey      string `json:"-"`
	AuthProtocol string `json:"-"`
	PrivProtocol string `json:"-"`
}

// Complete reports whether the mandatory USM fields are present.
func (c *SNMPCredentials) Complete() bool {
	return c != nil && c.User != "" && c.AuthKey != "" && c.PrivKey != ""
}
