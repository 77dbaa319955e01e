package bluetooth

import "strings"

// companyNames maps Bluetooth SIG company IDs to short vendor labels.
// See: https://www.bluetooth.com/specifications/assigned-numbers/
var companyNames = map[uint16]string{
	0x0002: "Intel",
	0x0006: "Microsoft",
	0x000F: "Broadcom",
	0x004C: "Apple",
	0x0059: "Nordic",
	0x0075: "Samsung",
	0x0087: "Bose",
	0x00E0: "Google",
	0x012D: "Sony",
	0x0131: "JBL",
	0x015D: "Espressif",
	0x0157: "Huawei",
	0x0171: "Amazon",
	0x02FF: "Tile",
	0x0310: "Xiaomi",
	0x038F: "Garmin",
	0x03DA: "Fitbit",
	0x0499: "Ruuvi",
}

// LookupManufacturer returns a vendor label for a company ID, or "" if unknown.
func LookupManufacturer(companyID uint16) string {
	return companyNames[companyID]
}

// vendorLabel builds a label like "Apple EE:FF" from a known manufacturer ID.
// It is "" when the result carries no manufacturer data or an unknown ID.
func vendorLabel(result ScanResult) string {
	if !result.HasCompanyID {
		return ""
	}
	vendor := LookupManufacturer(result.CompanyID)
	if vendor == "" {
		return ""
	}
	return vendor + " " + addressSuffix(result.Address)
}

// addressSuffix returns the last two octets of a MAC ("EE:FF"), or the last
// four characters of any other handle.
func addressSuffix(addr string) string {
	if parts := strings.Split(addr, ":"); len(parts) == 6 {
		return parts[4] + ":" + parts[5]
	}
	if len(addr) > 4 {
		return addr[len(addr)-4:]
	}
	return addr
}
