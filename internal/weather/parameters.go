package weather

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/johanode/climate-weather-data/internal/match"
)

// Parameter ids used by the climate indicators.
const (
	TemperaturePast1h        = 1
	TemperaturePast24h       = 2
	WindSpeed                = 4
	PrecipPast24hAt06        = 5
	SnowDepthPast24h         = 8
	PrecipTypePast24h        = 18
	TemperatureMinPast24h    = 19
	TemperatureMaxPast24h    = 20
	WindGust                 = 21
	TemperatureMeanPastMonth = 22
	PrecipPastMonth          = 23
)

// See https://opendata.smhi.se/apidocs/metobs/parameter.html
var parameters = []Parameter{
	{1, "TemperaturePast1h", "Lufttemperatur", "Momentanvärde, 1 gång/tim"},
	{2, "TemperaturePast24h", "Lufttemperatur", "Medelvärde 1 dygn, 1 gång/dygn, kl 00"},
	{3, "WindDirection", "Vindriktning", "Medelvärde 10 min, 1 gång/tim"},
	{4, "WindSpeed", "Vindhastighet", "Medelvärde 10 min, 1 gång/tim"},
	{5, "PrecipPast24hAt06", "Nederbördsmängd", "Summa 1 dygn, 1 gång/dygn, kl 06"},
	{6, "Humidity", "Relativ Luftfuktighet", "Momentanvärde, 1 gång/tim"},
	{7, "PrecipPast1h", "Nederbördsmängd", "Summa 1 timme, 1 gång/tim"},
	{8, "SnowDepthPast24h", "Snödjup", "Momentanvärde, 1 gång/dygn, kl 06"},
	{9, "Pressure", "Lufttryck reducerat havsytans nivå", "Vid havsytans nivå, momentanvärde, 1 gång/tim"},
	{10, "SunLast1h", "Solskenstid", "Summa 1 timme, 1 gång/tim"},
	{11, "RadiaGlob", "Global Irradians (svenska stationer)", "Medelvärde 1 timme, 1 gång/tim"},
	{12, "Visibility", "Sikt", "Momentanvärde, 1 gång/tim"},
	{13, "CurrentWeather", "Rådande väder", "Momentanvärde, 1 gång/tim resp 8 gånger/dygn"},
	{14, "PrecipPast15m", "Nederbördsmängd", "Summa 15 min, 4 gånger/tim"},
	{15, "PrecipMaxPast15m", "Nederbördsintensitet", "Max under 15 min, 4 gånger/tim"},
	{16, "CloudCover", "Total molnmängd", "Momentanvärde, 1 gång/tim"},
	{17, "PrecipPast12h", "Nederbörd", "2 gånger/dygn, kl 06 och 18"},
	{18, "PrecipTypePast24h", "Typ av nederbörd", "4 gång/dygn"},
	{19, "TemperatureMinPast24h", "Lufttemperatur", "Min, 1 gång per dygn"},
	{20, "TemperatureMaxPast24h", "Lufttemperatur", "Max, 1 gång per dygn"},
	{21, "WindGust", "Byvind", "Max, 1 gång/tim"},
	{22, "TemperatureMeanPastMonth", "Lufttemperatur", "Medel, 1 gång per månad"},
	{23, "PrecipPastMonth", "Nederbördsmängd", "Summa, 1 gång per månad"},
	{24, "LongwaveIrradians", "Långvågs-Irradians", "Långvågsstrålning, medel 1 timme, varje timme"},
	{25, "WindSpeedMaxMeanPast3h", "Max av MedelVindhastighet", "Maximum av medelvärde 10 min, under 3 timmar, 1 gång/tim"},
	{26, "TemperatureMinPast12h", "Lufttemperatur", "Min, 2 gånger per dygn, kl 06 och 18"},
	{27, "TemperatureMaxPast12h", "Lufttemperatur", "Max, 2 gånger per dygn, kl 06 och 18"},
	{28, "CloudLayerLowest", "Molnbas", "Lägsta molnlager, momentanvärde, 1 gång/tim"},
	{29, "CloudAmountLowest", "Molnmängd", "Lägsta molnlager, momentanvärde, 1 gång/tim"},
	{30, "CloudLayerOther", "Molnbas", "Andra molnlager, momentanvärde, 1 gång/tim"},
	{31, "CloudAmountOther", "Molnmängd", "Andra molnlager, momentanvärde, 1 gång/tim"},
	{32, "CloudLayer3rd", "Molnbas", "Tredje molnlager, momentanvärde, 1 gång/tim"},
	{33, "CloudAmount3rd", "Molnmängd", "Tredje molnlager, momentanvärde, 1 gång/tim"},
	{34, "CloudLayer4th", "Molnbas", "Fjärde molnlager, momentanvärde, 1 gång/tim"},
	{35, "CloudAmount4th", "Molnmängd", "Fjärde molnlager, momentanvärde, 1 gång/tim"},
	{36, "CloudStorageLowest", "Molnbas", "Lägsta molnbas, momentanvärde, 1 gång/tim"},
	{37, "CloudStorageLowestMin", "Molnbas", "Lägsta molnbas, min under 15 min, 1 gång/tim"},
	{38, "PrecipIntensityMaxMeanPast15m", "Nederbördsintensitet", "Max av medel under 15 min, 4 gånger/tim"},
	{39, "TemperatureDew", "Daggpunktstemperatur", "Momentanvärde, 1 gång/tim"},
	{40, "GroundCondition", "Markens tillstånd", "Momentanvärde, 1 gång/dygn, kl 06"},
}

// Parameters returns the parameter catalogue ordered by id.
func Parameters() []Parameter {
	out := make([]Parameter, len(parameters))
	copy(out, parameters)
	return out
}

// ParameterByID looks up a parameter by its SMHI id.
func ParameterByID(id int) (Parameter, error) {
	for _, p := range parameters {
		if p.ID == id {
			return p, nil
		}
	}
	return Parameter{}, fmt.Errorf("%w: parameter %d", ErrNotFound, id)
}

// ResolveParameter accepts a numeric id or an unambiguous part of a
// parameter label ("WindGust", "snowdepth").
func ResolveParameter(text string) (Parameter, error) {
	if id, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
		return ParameterByID(id)
	}

	labels := make([]string, len(parameters))
	for i, p := range parameters {
		labels[i] = p.Label
	}
	label, err := match.Match(text, labels)
	if err != nil {
		return Parameter{}, err
	}
	for _, p := range parameters {
		if p.Label == label {
			return p, nil
		}
	}
	return Parameter{}, fmt.Errorf("%w: parameter %q", ErrNotFound, text)
}

// Parameter groups needed by the climate indicators.
const (
	GroupTemperature   = "temperature"
	GroupPrecipitation = "precipitation"
	GroupWind          = "wind"
	GroupCombination   = "combination"
	GroupAll           = "all"
)

var groups = map[string][]int{
	GroupTemperature:   {TemperaturePast24h, TemperatureMinPast24h, TemperatureMaxPast24h, TemperatureMeanPastMonth},
	GroupPrecipitation: {PrecipPast24hAt06, PrecipTypePast24h, SnowDepthPast24h},
	GroupWind:          {WindSpeed, WindGust},
	GroupCombination:   {PrecipPast24hAt06, PrecipTypePast24h, TemperaturePast24h},
}

// GroupParameters returns the parameter ids of a climate parameter group.
// The group name is matched like any other name ("temp", "wind", "all").
func GroupParameters(group string) ([]int, error) {
	name, err := match.Match(group, []string{GroupTemperature, GroupPrecipitation, GroupWind, GroupCombination, GroupAll}, match.ForwardOnly())
	if err != nil {
		return nil, err
	}
	if name != GroupAll {
		return append([]int(nil), groups[name]...), nil
	}

	var ids []int
	seen := make(map[int]bool)
	for _, g := range []string{GroupTemperature, GroupPrecipitation, GroupWind, GroupCombination} {
		for _, id := range groups[g] {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// ParseParameters resolves a comma separated list of parameter ids, labels
// and group names ("all", "temperature,wind", "2,5,WindGust"). Duplicates are
// dropped; the order of first appearance is kept.
func ParseParameters(text string) ([]int, error) {
	var ids []int
	seen := make(map[int]bool)
	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, item := range strings.Split(text, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if isGroup(item) {
			group, err := GroupParameters(item)
			if err != nil {
				return nil, err
			}
			for _, id := range group {
				add(id)
			}
			continue
		}
		p, err := ResolveParameter(item)
		if err != nil {
			return nil, fmt.Errorf("parameter list entry %q: %w", item, err)
		}
		add(p.ID)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty parameter list", ErrNotFound)
	}
	return ids, nil
}

func isGroup(name string) bool {
	switch strings.ToLower(name) {
	case GroupTemperature, GroupPrecipitation, GroupWind, GroupCombination, GroupAll:
		return true
	}
	return false
}
