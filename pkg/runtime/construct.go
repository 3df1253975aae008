package runtime

import (
	"fmt"

	"enoki/interpreter-go/pkg/schema"
)

//-----------------------------------------------------------------------------
// Construction
//-----------------------------------------------------------------------------

// Construct checks arity and per-position kinds, then builds the tagged
// value. Construction is all-or-nothing: on any failure no value exists.
func Construct(ctor *schema.Constructor, args []Value) (*VariantValue, error) {
	if ctor == nil {
		return nil, fmt.Errorf("construct: nil constructor")
	}
	if len(args) != ctor.Arity() {
		return nil, &ArityMismatchError{Constructor: ctor.Name, Want: ctor.Arity(), Got: len(args)}
	}
	for i, arg := range args {
		declared := ctor.Params[i]
		if declared.IsAny() {
			continue
		}
		if actual := KindNameOf(arg); actual != declared.Name() {
			return nil, &KindMismatchError{Constructor: ctor.Name, Position: i, Declared: declared.Name(), Actual: actual}
		}
	}
	return &VariantValue{Constructor: ctor, Args: append([]Value(nil), args...)}, nil
}

// KindNameOf maps a runtime value to the schema-level kind name it satisfies:
// Int, String, Bool, the variant's type name, or a descriptive name for
// values no declared kind admits.
func KindNameOf(value Value) string {
	switch v := value.(type) {
	case IntegerValue:
		return schema.Int.Name()
	case StringValue:
		return schema.String.Name()
	case BoolValue:
		return schema.Bool.Name()
	case *VariantValue:
		return v.TypeName()
	case UnitValue:
		return "Unit"
	case *FunctionValue, NativeFunctionValue:
		return "Function"
	default:
		return fmt.Sprintf("<%s>", value.Kind())
	}
}

//-----------------------------------------------------------------------------
// Construction errors
//-----------------------------------------------------------------------------

// ArityMismatchError reports a constructor applied to the wrong number of
// arguments.
type ArityMismatchError struct {
	Constructor string
	Want        int
	Got         int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("constructor %s expects %d arguments, got %d", e.Constructor, e.Want, e.Got)
}

// KindMismatchError reports an argument whose kind does not satisfy the
// declared kind at its position (zero-based).
type KindMismatchError struct {
	Constructor string
	Position    int
	Declared    string
	Actual      string
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("constructor %s argument %d: declared kind %s, got %s", e.Constructor, e.Position, e.Declared, e.Actual)
}

//-----------------------------------------------------------------------------
// Structural equality
//-----------------------------------------------------------------------------

// Equal reports structural equality. Variants compare tag first, then
// arguments recursively; a nested variant never collapses into its argument,
// so Some(None) is not None and Some(Some(x)) is not Some(x). Functions
// compare by identity.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case IntegerValue:
		bv, ok := b.(IntegerValue)
		return ok && av.Val.Cmp(bv.Val) == 0
	case StringValue:
		bv, ok := b.(StringValue)
		return ok && av.Val == bv.Val
	case BoolValue:
		bv, ok := b.(BoolValue)
		return ok && av.Val == bv.Val
	case UnitValue:
		_, ok := b.(UnitValue)
		return ok
	case *VariantValue:
		bv, ok := b.(*VariantValue)
		if !ok || av.TypeName() != bv.TypeName() || av.Tag() != bv.Tag() {
			return false
		}
		if len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !Equal(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	case *FunctionValue:
		bv, ok := b.(*FunctionValue)
		return ok && av == bv
	case NativeFunctionValue:
		bv, ok := b.(NativeFunctionValue)
		return ok && av.Name == bv.Name
	default:
		return false
	}
}
