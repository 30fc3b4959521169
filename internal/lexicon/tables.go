package lexicon

// Aviation certification and engineering vocabulary. Lower case, single tokens.
var technicalTerms = []string{
	// structures and loads
	"airframe", "fuselage", "wing", "empennage", "nacelle", "pylon", "spar", "rib", "stringer",
	"bulkhead", "frame", "skin", "fastener", "rivet", "joint", "splice", "laminate", "composite",
	"load", "loads", "stress", "strain", "fatigue", "fracture", "crack", "corrosion", "damage",
	"tolerance", "residual", "strength", "stiffness", "buckling", "flutter", "vibration",
	"deformation", "ultimate", "limit", "yield", "static", "dynamic", "cyclic", "inspection",
	"inspections", "threshold", "interval", "redundancy", "failsafe", "fail-safe",
	// systems
	"hydraulic", "pneumatic", "electrical", "avionics", "actuator", "actuators", "servo",
	"sensor", "sensors", "valve", "pump", "compressor", "turbine", "combustor", "rotor",
	"propeller", "gearbox", "bearing", "shaft", "nozzle", "fuel", "oil", "lubrication",
	"bleed", "pressurization", "cabin", "landing", "gear", "brake", "brakes", "flap", "flaps",
	"slat", "aileron", "elevator", "rudder", "trim", "autopilot", "transponder", "altimeter",
	"apu", "engine", "engines", "thrust", "reverser", "ignition", "fire", "extinguishing",
	// certification
	"airworthiness", "certification", "compliance", "conformity", "qualification",
	"specification", "specifications", "requirement", "requirements", "probability",
	"catastrophic", "hazardous", "major", "minor", "failure", "failures", "malfunction",
	"mitigation", "assessment", "analysis", "validation", "verification", "substantiation",
	"demonstration", "test", "tests", "margin", "margins", "factor", "factors", "safety",
	"reliability", "mtbf", "hazard", "hazards", "criticality", "redundant",
	// flight and environment
	"aerodynamic", "aeroelastic", "stall", "spin", "gust", "manoeuvre", "maneuver", "altitude",
	"airspeed", "mach", "icing", "lightning", "temperature", "pressure", "humidity", "bird",
	"strike", "impact", "overspeed", "takeoff", "take-off", "approach", "climb", "descent",
	"cruise", "taxi",
	// units and quantities
	"kn", "kg", "lb", "psi", "kpa", "mpa", "hpa", "rpm", "ft", "mm", "nm", "hz", "khz",
	"degrees", "celsius",
}

var englishStopwords = []string{
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and", "any",
	"are", "as", "at", "be", "because", "been", "before", "being", "below", "between", "both",
	"but", "by", "can", "could", "did", "do", "does", "doing", "down", "during", "each", "either",
	"few", "for", "from", "further", "had", "has", "have", "having", "he", "her", "here", "hers",
	"him", "his", "how", "i", "if", "in", "into", "is", "it", "its", "itself", "just", "may",
	"me", "might", "more", "most", "must", "my", "no", "nor", "not", "now", "of", "off", "on",
	"once", "only", "or", "other", "our", "ours", "out", "over", "own", "same", "shall", "she",
	"should", "so", "some", "such", "than", "that", "the", "their", "theirs", "them", "then",
	"there", "these", "they", "this", "those", "through", "to", "too", "under", "until", "up",
	"upon", "very", "was", "we", "were", "what", "when", "where", "whether", "which", "while",
	"who", "whom", "why", "will", "with", "within", "without", "would", "you", "your", "yours",
	"see", "refer", "paragraph", "accordance", "defined", "pursuant", "specified",
}

var germanStopwords = []string{
	"aber", "alle", "als", "also", "am", "an", "auch", "auf", "aus", "bei", "bis", "da", "damit",
	"dann", "das", "dass", "dem", "den", "der", "des", "die", "dies", "diese", "diesem", "diesen",
	"dieser", "doch", "dort", "du", "durch", "ein", "eine", "einem", "einen", "einer", "eines",
	"er", "es", "für", "gegen", "gemäß", "hat", "hier", "ich", "ihr", "im", "in", "ist", "jede",
	"jedes", "kann", "kein", "keine", "mit", "muss", "müssen", "nach", "nicht", "noch", "nur",
	"ob", "oder", "ohne", "sich", "sie", "siehe", "sind", "so", "soll", "sollen", "über", "um",
	"und", "uns", "unter", "vom", "von", "vor", "wenn", "werden", "wie", "wird", "wo", "zu",
	"zum", "zur", "zwischen",
}

var frenchStopwords = []string{
	"à", "au", "aux", "avec", "ce", "ces", "cette", "dans", "de", "des", "doit", "doivent", "du",
	"elle", "en", "est", "et", "être", "il", "ils", "la", "le", "les", "leur", "lui", "mais",
	"même", "ne", "ni", "nous", "on", "ou", "où", "par", "pas", "pour", "qu", "que", "qui", "sa",
	"se", "selon", "ses", "son", "sont", "sous", "sur", "ta", "te", "tes", "toi", "ton", "tous",
	"tout", "une", "un", "vers", "vos", "votre", "vous", "été",
}
