// Package ontology centralizes the RDF vocabulary this system reads and
// writes, so no SPARQL string builder in internal/timeseries or
// internal/derived ever inlines a bare predicate URI.
package ontology

// # Namespaces

const (
	NSTimeSeries = "https://www.theworldavatar.com/kg/ontotimeseries/"
	NSDerived    = "https://www.theworldavatar.com/kg/ontoderived/"
	NSAgent      = "https://www.theworldavatar.com/kg/ontoagent/"
	NSTime       = "http://www.w3.org/2006/time#"
	NSRDF        = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
)

// # Classes

const (
	ClassTimeSeries           = NSTimeSeries + "TimeSeries"
	ClassDerived              = NSDerived + "Derived"
	ClassDerivedWithTimeSeries = NSDerived + "DerivedWithTimeSeries"
	ClassService              = NSAgent + "Service"
	ClassTimePosition         = NSTime + "Instant"
)

// # Predicates

const (
	PredRDFType        = NSRDF + "type"
	PredHasTimeSeries   = NSTimeSeries + "hasTimeSeries"
	PredHasRDB          = NSTimeSeries + "hasRDB"
	PredHasTimeUnit     = NSTimeSeries + "hasTimeUnit"
	PredIsDerivedFrom   = NSDerived + "isDerivedFrom"
	PredIsDerivedUsing  = NSDerived + "isDerivedUsing"
	PredHasHttpUrl      = NSAgent + "hasHttpUrl"
	PredHasTime         = NSDerived + "hasTime"
	PredNumericPosition = NSTime + "numericPosition"
	PredBelongsTo       = NSDerived + "belongsTo"
)

// Var names used consistently across the SPARQL query builders so the
// binding-row decoding in internal/gateway/sparql stays uniform.
const (
	VarSubject  = "s"
	VarObject   = "o"
	VarEntity   = "entity"
	VarSeries   = "series"
	VarDataID   = "dataId"
	VarDB       = "db"
	VarUnit     = "unit"
	VarAgent    = "agent"
	VarAgentURL = "agentUrl"
	VarInput    = "input"
	VarTimePos  = "timePos"
	VarTime     = "time"
	VarType     = "type"
	VarDerived  = "derived"
)
