package rule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"netaudit/internal/domain"
)

const (
	snmpPort    = 161
	snmpTimeout = 5 * time.Second
	snmpRetries = 1

	// sysUpTime, readable on any agent that answers at all.
	snmpProbeOID = ".1.3.6.1.2.1.1.3.0"
)

// SNMPv3Rule checks that the device answers an authenticated SNMPv3 GET.
// It probes sysUpTime with the USM credentials from the audit configuration.
type SNMPv3Rule struct{}

func (SNMPv3Rule) Name() string { return "snmp_v3" }

func (SNMPv3Rule) Applicable(*domain.Device) bool { return true }

func (SNMPv3Rule) Run(ctx context.Context, t Target, cfg Config) domain.RuleResult {
	if !t.SNMP.Complete() {
		return evalError("snmpv3 credentials not configured")
	}

	client := &gosnmp.GoSNMP{
		Target:        t.Device.Address,
		Port:          snmpPort,
		Version:       gosnmp.Version3,
		Timeout:       snmpTimeout,
		Retries:       snmpRetries,
		SecurityModel: gosnmp.UserSecurityModel,
		MsgFlags:      gosnmp.AuthPriv,
		Context:       ctx,
		SecurityParameters: &gosnmp.UsmSecurityParameters{
			UserName:                 t.SNMP.User,
			AuthenticationProtocol:   authProtocol(t.SNMP.AuthProtocol),
			AuthenticationPassphrase: t.SNMP.AuthKey,
			PrivacyProtocol:          privProtocol(t.SNMP.PrivProtocol),
			PrivacyPassphrase:        t.SNMP.PrivKey,
		},
	}

	if err := client.Connect(); err != nil {
		return evalError("snmp connect failed: " + err.Error())
	}
	defer client.Conn.Close()

	oid := cfg.Get("oid", snmpProbeOID)

	res, err := client.Get([]string{oid})
	if err != nil {
		return nonCompliant("no snmpv3 response: " + err.Error())
	}

	if res.Error != gosnmp.NoError || len(res.Variables) == 0 {
		return nonCompliant(fmt.Sprintf("snmpv3 agent returned error %v", res.Error))
	}

	return compliant("snmpv3 agent answered authenticated get")
}

func authProtocol(name string) gosnmp.SnmpV3AuthProtocol {
	switch strings.ToUpper(name) {
	case "SHA256":
		return gosnmp.SHA256
	case "MD5":
		return gosnmp.MD5
	default:
		return gosnmp.SHA
	}
}

func privProtocol(name string) gosnmp.SnmpV3PrivProtocol {
	switch strings.ToUpper(name) {
	case "AES256":
		return gosnmp.AES256
	case "DES":
		return gosnmp.DES
	default:
		return gosnmp.AES
	}
}
