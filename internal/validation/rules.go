package validation

// Messages reported by the product rule sets.
const (
	MsgInvalidID     = "Invalid ID"
	MsgNameRequired  = "The name is required"
	MsgPriceRequired = "The price is required"
	MsgNotANumber    = "Value is not a number"
	MsgInvalidPrice  = "Invalid price"
	MsgInvalidValue  = "Invalid value"
)

// Body fields of a product request.
const (
	FieldID           = "id"
	FieldName         = "name"
	FieldPrice        = "price"
	FieldAvailability = "availability"
)

var idRule = Integer(Params, FieldID, MsgInvalidID)

// ProductID applies to every route carrying an :id segment.
var ProductID = Chain{idRule}

var productBody = Chain{
	NotEmpty(Body, FieldName, MsgNameRequired),
	NotEmpty(Body, FieldPrice, MsgPriceRequired),
	Numeric(Body, FieldPrice, MsgNotANumber),
	Positive(Body, FieldPrice, MsgInvalidPrice),
}

// CreateProduct validates the body of a create request.
var CreateProduct = productBody

// ReplaceProduct validates the path and body of a full update.
var ReplaceProduct = join(
	ProductID,
	productBody,
	Chain{Boolean(Body, FieldAvailability, MsgInvalidValue)},
)

func join(chains ...Chain) Chain {
	var out Chain
	for _, ch := range chains {
		out = append(out, ch...)
	}
	return out
}
