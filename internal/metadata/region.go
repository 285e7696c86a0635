package metadata

import "strings"

// DefaultRegions lists the known region codes. Order matters: the first
// prefix match against the availability zone wins.
var DefaultRegions = []string{
	"ap-northeast-1",
	"ap-southeast-1",
	"ap-southeast-2",
	"eu-west-1",
	"sa-east-1",
	"us-east-1",
	"us-west-1",
	"us-west-2",
}

// AddRegion derives "<prefix>_placement_region" from
// "<prefix>_placement_availability_zone" and adds it to facts in place.
// When the zone fact is absent nothing is added. When no known region is a
// prefix of the zone the zone string itself becomes the region, so newly
// introduced zones degrade gracefully.
func AddRegion(facts map[string]string, prefix string, regions []string) {
	zone, ok := facts[prefix+"_placement_availability_zone"]
	if !ok {
		return
	}
	region := zone
	for _, r := range regions {
		if strings.HasPrefix(zone, r) {
			region = r
			break
		}
	}
	facts[prefix+"_placement_region"] = region
}
