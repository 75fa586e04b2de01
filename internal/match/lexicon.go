package match

// synonymGroups lists words that are interchangeable when matching logistics
// document fields. A word may appear in more than one group.
var synonymGroups = [][]string{
	// Names and identity
	{"name", "fullname", "title", "label", "identifier"},
	{"sender", "shipper", "consignor", "from", "origin", "source"},
	{"receiver", "recipient", "consignee", "to", "destination", "dest"},

	// Address and location
	{"address", "location", "addr", "place", "street", "fulladdress"},
	{"city", "town", "municipality"},
	{"state", "province", "region"},
	{"country", "nation"},
	{"zip", "zipcode", "postal", "postalcode", "pincode", "pin"},

	// Contact
	{"phone", "telephone", "tel", "mobile", "cell", "contact", "number"},
	{"email", "mail", "emailaddress"},

	// Shipping and tracking
	{"shipment", "shipping", "ship", "consignment", "order"},
	{"tracking", "track", "trackingnumber", "trackingid", "awb", "waybill"},
	{"weight", "wt", "mass", "kg", "kilograms", "lbs", "pounds"},
	{"dimensions", "dim", "dims", "size", "measurements", "lxwxh"},
	{"quantity", "qty", "count", "units", "pieces", "pcs"},

	// Dates
	{"date", "dt", "datetime", "timestamp"},
	{"shipdate", "shippingdate", "shipped", "dispatchdate", "dispatch"},
	{"delivery", "deliverydate", "eta", "expecteddelivery", "arrival", "duedate"},
	{"created", "createdat", "datecreated", "creationdate"},

	// Documents
	{"invoice", "inv", "bill", "receipt"},
	{"document", "doc", "file", "record"},
	{"id", "identifier", "number", "num", "no", "code", "ref", "reference"},

	// Money and amounts
	{"amount", "total", "sum", "value", "price", "cost", "charge"},
	{"insurance", "insured", "insurancevalue", "coverage"},
	{"freight", "freightcharge", "shippingcost", "carriagecharge"},

	// Status and priority
	{"status", "state", "condition"},
	{"priority", "urgency", "level", "importance"},

	// Cargo and package
	{"package", "pkg", "parcel", "cargo", "goods", "item"},
	{"description", "desc", "details", "info", "information"},
	{"hazmat", "hazardous", "dangerous", "dg", "dangerousgoods"},
	{"instructions", "notes", "remarks", "comments", "special"},
}

// abbreviations expands short forms found on shipping paperwork.
var abbreviations = map[string][]string{
	"dob":  {"date", "of", "birth", "dateofbirth", "birthdate"},
	"eta":  {"estimated", "time", "arrival", "expectedarrival", "deliverydate"},
	"etd":  {"estimated", "time", "departure", "expecteddelivery"},
	"qty":  {"quantity", "count", "units"},
	"amt":  {"amount", "total", "value"},
	"addr": {"address", "location"},
	"tel":  {"telephone", "phone", "contact"},
	"inv":  {"invoice", "bill"},
	"ref":  {"reference", "id", "number"},
	"no":   {"number", "id"},
	"num":  {"number", "id"},
	"wt":   {"weight", "mass"},
	"kg":   {"kilogram", "weight"},
	"lbs":  {"pounds", "weight"},
	"dt":   {"date", "datetime"},
	"desc": {"description", "details"},
	"info": {"information", "details"},
	"pcs":  {"pieces", "quantity", "units"},
	"pkg":  {"package", "parcel"},
	"doc":  {"document", "file"},
	"msg":  {"message", "note"},
	"src":  {"source", "origin", "sender"},
	"dst":  {"destination", "receiver", "recipient"},
	"awb":  {"airwaybill", "tracking", "waybill"},
	"bol":  {"billoflading", "bill", "lading"},
	"lr":   {"lorryreceipt", "receipt", "document"},
	"po":   {"purchaseorder", "order"},
	"so":   {"salesorder", "order"},
	"dn":   {"deliverynote", "delivery"},
	"grn":  {"goodsreceiptnote", "receipt"},
}

// stems maps inflected words to their root.
var stems = map[string]string{
	"shipping":   "ship",
	"shipped":    "ship",
	"shipper":    "ship",
	"shipment":   "ship",
	"tracking":   "track",
	"tracked":    "track",
	"tracker":    "track",
	"receiving":  "receive",
	"received":   "receive",
	"receiver":   "receive",
	"sending":    "send",
	"sender":     "send",
	"delivering": "deliver",
	"delivered":  "deliver",
	"delivery":   "deliver",
	"creating":   "create",
	"created":    "create",
	"creation":   "create",
	"updating":   "update",
	"updated":    "update",
	"weighing":   "weigh",
	"weighted":   "weigh",
	"weight":     "weigh",
	"packaging":  "package",
	"packaged":   "package",
	"numbering":  "number",
	"numbered":   "number",
	"addressing": "address",
	"addressed":  "address",
	"invoicing":  "invoice",
	"invoiced":   "invoice",
	"ordering":   "order",
	"ordered":    "order",
	"dating":     "date",
	"dated":      "date",
	"naming":     "name",
	"named":      "name",
	"pricing":    "price",
	"priced":     "price",
	"costing":    "cost",
	"costed":     "cost",
	"charging":   "charge",
	"charged":    "charge",
	"insuring":   "insure",
	"insured":    "insure",
	"insurance":  "insure",
}

// wordSet is an immutable set of lowercase words.
type wordSet map[string]struct{}

func (s wordSet) has(w string) bool {
	_, ok := s[w]
	return ok
}

// synonymIndex maps every word that appears in a synonym group to the union
// of all groups containing it.
var synonymIndex = buildSynonymIndex(synonymGroups)

func buildSynonymIndex(groups [][]string) map[string]wordSet {
	index := make(map[string]wordSet)
	for _, group := range groups {
		for _, w := range group {
			set, ok := index[w]
			if !ok {
				set = make(wordSet)
				index[w] = set
			}
			for _, other := range group {
				set[other] = struct{}{}
			}
		}
	}
	return index
}

// Stem returns the root form of a lowercase word, or the word itself.
func Stem(word string) string {
	if root, ok := stems[word]; ok {
		return root
	}
	return word
}

// Expand returns the closed synonym set of a lowercase token: the token, its
// abbreviation expansions, its stem, and every synonym group containing the
// token or its stem.
func Expand(token string) []string {
	set := expand(token)
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	return out
}

func expand(token string) wordSet {
	root := Stem(token)

	set := wordSet{token: {}, root: {}}
	for _, w := range abbreviations[token] {
		set[w] = struct{}{}
	}
	for w := range synonymIndex[token] {
		set[w] = struct{}{}
	}
	for w := range synonymIndex[root] {
		set[w] = struct{}{}
	}
	return set
}

// expandAll unions the expansions of every token.
func expandAll(tokens []string) wordSet {
	set := make(wordSet)
	for _, t := range tokens {
		for w := range expand(t) {
			set[w] = struct{}{}
		}
	}
	return set
}
