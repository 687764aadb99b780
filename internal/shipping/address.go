package shipping

import (
	"regexp"
	"strings"

	pkgerrors "github.com/jordanvales/threadswap-backend/pkg/errors"
	"github.com/jordanvales/threadswap-backend/pkg/types"
)

// usStates holds the 50 states plus DC. Shipments are domestic only.
var usStates = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {},
	"DE": {}, "DC": {}, "FL": {}, "GA": {}, "HI": {}, "ID": {}, "IL": {},
	"IN": {}, "IA": {}, "KS": {}, "KY": {}, "LA": {}, "ME": {}, "MD": {},
	"MA": {}, "MI": {}, "MN": {}, "MS": {}, "MO": {}, "MT": {}, "NE": {},
	"NV": {}, "NH": {}, "NJ": {}, "NM": {}, "NY": {}, "NC": {}, "ND": {},
	"OH": {}, "OK": {}, "OR": {}, "PA": {}, "RI": {}, "SC": {}, "SD": {},
	"TN": {}, "TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {}, "WV": {},
	"WI": {}, "WY": {},
}

var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// ValidateDomesticAddress checks that an address is shippable within the US.
// Field-level problems come back in the error details.
func ValidateDomesticAddress(addr types.Address) error {
	problems := map[string]string{}

	if strings.TrimSpace(addr.Street1) == "" {
		problems["street1"] = "required"
	}
	if strings.TrimSpace(addr.City) == "" {
		problems["city"] = "required"
	}

	state := strings.ToUpper(strings.TrimSpace(addr.State))
	if _, ok := usStates[state]; !ok {
		problems["state"] = "must be a US state or DC abbreviation"
	}

	if !zipPattern.MatchString(strings.TrimSpace(addr.PostalCode)) {
		problems["postal_code"] = "must be ZIP or ZIP+4"
	}

	if country := strings.ToUpper(strings.TrimSpace(addr.Country)); country != "" && country != "US" {
		problems["country"] = "only US shipments are supported"
	}

	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "address is not shippable").WithDetails(problems)
	}
	return nil
}
