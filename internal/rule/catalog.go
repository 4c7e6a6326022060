package rule

// DefaultRegistry returns a frozen registry holding every built-in rule in
// canonical order. The order is the report column order.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for _, rl := range []Rule{
		SysnameRule{},
		TacacsRule{},
		SNMPv3Rule{},
		SNMPTrapRule{},
		CPUUsageRule{},
		MemoryUsageRule{},
		FanHealthRule{},
		PowerSupplyRule{},
		TemperatureRule{},
		UptimeRule{},
		HardwareInventoryRule{},
		StorageCapacityRule{},
		TransceiverDiagnosticsRule{},
	} {
		// Built-in names are unique, registration cannot fail here.
		if err := r.Register(rl); err != nil {
			panic(err)
		}
	}

	r.Freeze()

	return r
}
