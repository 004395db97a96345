package core

import (
	"github.com/shopspring/decimal"
)

// Hour keys that do not map one-to-one onto an AggregatedHours field.
const (
	// KeyTotalXCPIC approximates cross-country time as PIC by min(cross country, PIC).
	KeyTotalXCPIC = "total_xc_pic"
)

var hundred = decimal.NewFromInt(100)

func hoursReq(label string, required int64, key string) CertificationRequirement {
	return CertificationRequirement{Label: label, Required: decimal.NewFromInt(required), Unit: UnitHours, HoursKey: key}
}

func flightReq(label, key string) CertificationRequirement {
	return CertificationRequirement{Label: label, Required: decimal.NewFromInt(1), Unit: UnitFlight, HoursKey: key, IsSpecial: true}
}

// requirementTables holds the aeronautical experience minimums per certificate.
//
//	private     14 CFR 61.109(a)
//	instrument  14 CFR 61.65(d)
//	commercial  14 CFR 61.129(a)
//	cfi         commercial and instrument prerequisites of 14 CFR 61.183
var requirementTables = map[CertificationType][]CertificationRequirement{
	CertPrivate: {
		hoursReq("Total flight time", 40, "total"),
		hoursReq("Pilot in command", 10, "pic"),
		hoursReq("Cross-country as PIC", 5, KeyTotalXCPIC),
		hoursReq("Night", 3, "night"),
	},
	CertInstrument: {
		hoursReq("Cross-country as PIC", 50, "pic_xc"),
		hoursReq("Actual or simulated instrument", 40, "instrument_total"),
		hoursReq("Instrument training in an airplane", 15, "instrument_dual_airplane"),
		hoursReq("Instrument training in the last 2 calendar months", 3, "recent_instrument"),
		flightReq("250 nm instrument cross-country with 3 approach types", "ir_250nm_xc"),
	},
	CertCommercial: {
		hoursReq("Total flight time", 250, "total"),
		hoursReq("Pilot in command", 100, "pic"),
		hoursReq("Cross-country as PIC", 50, "pic_xc"),
		hoursReq("Instrument training, up to 5.0 in a simulator", 10, "cpl_sim_instrument_training"),
		hoursReq("Instrument training in an airplane", 5, "instrument_dual_airplane"),
		hoursReq("Complex, turbine or TAA training", 10, "complex_dual"),
		flightReq("2-hour day cross-country over 100 nm with an instructor", "cpl_2hr_day_xc"),
		flightReq("2-hour night cross-country over 100 nm with an instructor", "cpl_2hr_night_xc"),
		hoursReq("Checkride preparation in the last 2 calendar months", 3, "recent_dual_airplane"),
		flightReq("300 nm solo cross-country", "solo_long_xc"),
		hoursReq("Night", 5, "night"),
	},
	CertCFI: {
		hoursReq("Total flight time", 250, "total"),
		hoursReq("Pilot in command", 100, "pic"),
		hoursReq("Cross-country as PIC", 50, "pic_xc"),
		hoursReq("Actual or simulated instrument", 40, "instrument_total"),
		hoursReq("Night", 10, "night"),
	},
}

var certificationOrder = []CertificationType{CertPrivate, CertInstrument, CertCommercial, CertCFI}

// CertificationTypes lists the supported certificates in display order.
func CertificationTypes() []CertificationType {
	out := make([]CertificationType, len(certificationOrder))
	copy(out, certificationOrder)
	return out
}

// Requirements returns a copy of the requirement table for cert.
func Requirements(cert CertificationType) ([]CertificationRequirement, error) {
	table, ok := requirementTables[cert]
	if !ok {
		return nil, &UnknownCertificationError{Type: cert}
	}
	out := make([]CertificationRequirement, len(table))
	copy(out, table)
	return out, nil
}

// EvaluateCertification measures hours against every requirement of cert,
// preserving table order.
func EvaluateCertification(hours AggregatedHours, cert CertificationType) ([]RequirementProgress, error) {
	table, err := Requirements(cert)
	if err != nil {
		return nil, err
	}

	progress := make([]RequirementProgress, 0, len(table))
	for _, req := range table {
		progress = append(progress, evaluateRequirement(hours, req))
	}
	return progress, nil
}

func evaluateRequirement(hours AggregatedHours, req CertificationRequirement) RequirementProgress {
	current, _ := HoursValue(hours, req.HoursKey)
	if req.IsSpecial {
		if current.IsPositive() {
			current = decimal.NewFromInt(1)
		} else {
			current = decimal.Zero
		}
	}

	remaining := decimal.Max(decimal.Zero, req.Required.Sub(current))

	percentage := hundred
	if req.Required.IsPositive() {
		percentage = decimal.Min(hundred, current.Div(req.Required).Mul(hundred)).Round(2)
	}

	return RequirementProgress{
		Requirement: req,
		Current:     current,
		Remaining:   remaining,
		Percentage:  percentage,
		IsComplete:  remaining.IsZero(),
	}
}

// HoursValue looks up an hour category by key. Boolean qualifiers read as 1 or 0.
// ok is false for an unknown key.
func HoursValue(h AggregatedHours, key string) (decimal.Decimal, bool) {
	switch key {
	case "total":
		return h.Total, true
	case "pic":
		return h.PIC, true
	case "cross_country":
		return h.CrossCountry, true
	case "dual_received":
		return h.DualReceived, true
	case "actual_instrument":
		return h.ActualInstrument, true
	case "simulated_instrument":
		return h.SimulatedInstrument, true
	case "instrument_total":
		return h.InstrumentTotal, true
	case "simulator_time":
		return h.SimulatorTime, true
	case "sim_instrument_time":
		return h.SimInstrumentTime, true
	case "batd_time":
		return h.BATDTime, true
	case "pic_xc":
		return h.PICCrossCountry, true
	case "instrument_dual_airplane":
		return h.InstrumentDualInAirplane, true
	case "recent_instrument":
		return h.RecentInstrument, true
	case "complex":
		return h.ComplexTime, true
	case "night":
		return h.Night, true
	case "day_xc":
		return h.DayCrossCountry, true
	case "night_xc":
		return h.NightCrossCountry, true
	case "long_xc":
		return h.LongCrossCountry, true
	case "solo_long_xc":
		return h.SoloLongCrossCountry, true
	case "dual_xc":
		return h.DualCrossCountry, true
	case "complex_dual":
		return h.ComplexDual, true
	case "recent_dual_airplane":
		return h.RecentDualInAirplane, true
	case "instrument_dual_simulator":
		return h.InstrumentDualSimulator, true
	case "cpl_sim_instrument_training":
		return h.CommercialInstrumentTraining, true
	case "ir_250nm_xc":
		return boolHours(h.IR250nmCrossCountryQualified), true
	case "cpl_2hr_day_xc":
		return boolHours(h.TwoHourDayCrossCountry), true
	case "cpl_2hr_night_xc":
		return boolHours(h.TwoHourNightCrossCountry), true
	case KeyTotalXCPIC:
		return decimal.Min(h.CrossCountry, h.PIC), true
	default:
		return decimal.Zero, false
	}
}

// hourCategories lists the summed categories in AggregatedHours field order.
var hourCategories = []string{
	"total", "pic", "cross_country", "dual_received", "actual_instrument",
	"simulated_instrument", "instrument_total", "simulator_time",
	"sim_instrument_time", "batd_time", "pic_xc", "instrument_dual_airplane",
	"recent_instrument", "complex", "night", "day_xc", "night_xc", "long_xc",
	"solo_long_xc", "dual_xc", "complex_dual", "recent_dual_airplane",
	"instrument_dual_simulator", "cpl_sim_instrument_training",
	"ir_250nm_xc", "cpl_2hr_day_xc", "cpl_2hr_night_xc",
}

func boolHours(b bool) decimal.Decimal {
	if b {
		return decimal.NewFromInt(1)
	}
	return decimal.Zero
}
