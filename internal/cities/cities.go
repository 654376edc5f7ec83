// Package cities holds the static railway city reference list used for
// origin/destination autocomplete. It is lookup data only; listings are not
// validated against it.
package cities

import "strings"

var IndianRailwayCities = []string{
	"Agra", "Ahmedabad", "Ajmer", "Allahabad", "Amritsar", "Asansol",
	"Aurangabad", "Bengaluru", "Bhopal", "Bhubaneswar", "Bikaner",
	"Chandigarh", "Chennai", "Coimbatore", "Dehradun", "Delhi", "Dhanbad",
	"Durgapur", "Ernakulam", "Gaya", "Ghaziabad", "Gorakhpur", "Guntur",
	"Guwahati", "Gwalior", "Howrah", "Hubli", "Hyderabad", "Indore",
	"Jabalpur", "Jaipur", "Jalandhar", "Jammu", "Jamshedpur", "Jhansi",
	"Jodhpur", "Kanpur", "Katra", "Kharagpur", "Kochi", "Kolkata", "Kota",
	"Kozhikode", "Lucknow", "Ludhiana", "Madurai", "Mangalore", "Mathura",
	"Meerut", "Moradabad", "Mumbai", "Mysuru", "Nagpur", "Nashik",
	"New Delhi", "Patna", "Prayagraj", "Pune", "Raipur", "Rajkot", "Ranchi",
	"Rourkela", "Salem", "Secunderabad", "Siliguri", "Solapur", "Surat",
	"Thane", "Thiruvananthapuram", "Tiruchirappalli", "Tirupati", "Udaipur",
	"Ujjain", "Vadodara", "Varanasi", "Vijayawada", "Visakhapatnam", "Warangal",
}

// Search returns cities matching q as a case-insensitive substring. An empty
// query returns the full list.
func Search(q string) []string {
	if q == "" {
		return IndianRailwayCities
	}
	q = strings.ToLower(q)
	var matches []string
	for _, city := range IndianRailwayCities {
		if strings.Contains(strings.ToLower(city), q) {
			matches = append(matches, city)
		}
	}
	return matches
}
