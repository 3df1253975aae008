package runtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xlab/treeprint"
)

// Render returns the inline rendering of a value: literals as written,
// strings quoted, variants as Tag or Tag(arg, ...). Nesting is preserved
// exactly; Some(Some(3)) renders with both layers.
func Render(value Value) string {
	switch v := value.(type) {
	case IntegerValue:
		return v.Val.String()
	case StringValue:
		return strconv.Quote(v.Val)
	case BoolValue:
		return strconv.FormatBool(v.Val)
	case UnitValue:
		return "()"
	case *VariantValue:
		if len(v.Args) == 0 {
			return v.Tag()
		}
		parts := make([]string, len(v.Args))
		for i, arg := range v.Args {
			parts[i] = Render(arg)
		}
		return v.Tag() + "(" + strings.Join(parts, ", ") + ")"
	case *FunctionValue:
		if name := v.Name(); name != "" {
			return fmt.Sprintf("fn %s/%d", name, len(v.Params()))
		}
		return fmt.Sprintf("fn/%d", len(v.Params()))
	case NativeFunctionValue:
		return fmt.Sprintf("native %s/%d", v.Name, v.Arity)
	default:
		return fmt.Sprintf("<%s>", value.Kind())
	}
}

// RenderTree returns a tree rendering with one branch per constructor layer
// and primitive arguments as leaves. Non-variant values fall back to the
// inline form.
func RenderTree(value Value) string {
	variant, ok := value.(*VariantValue)
	if !ok {
		return Render(value)
	}
	tree := treeprint.NewWithRoot(variant.Tag())
	addVariantChildren(tree, variant)
	return strings.TrimRight(tree.String(), "\n")
}

func addVariantChildren(tree treeprint.Tree, variant *VariantValue) {
	for _, arg := range variant.Args {
		if child, ok := arg.(*VariantValue); ok && len(child.Args) > 0 {
			addVariantChildren(tree.AddBranch(child.Tag()), child)
			continue
		}
		tree.AddNode(Render(arg))
	}
}
