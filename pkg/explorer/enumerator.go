package explorer

import (
	"errors"
)

// EnumeratePaths 对各参数域的笛卡尔积逐组合调用目标函数,并记录每条路径的结果。
//
// 调用协议:先以命名绑定调用;命名绑定因调用约定失败且组合恰有一个键时,
// 改以单个位置参数重试。重试仍属调用约定失败,或组合键数大于一,
// 则该 *ArityError 上抛给调用方——这是唯一允许逃逸的错误类别。
// 目标函数体自身的错误（含 panic）被捕获写入记录,枚举继续。
func EnumeratePaths(target Target, inputs map[string]interface{}) (*PathReport, error) {
	keys, lists := NormalizeDomains(inputs)
	combos := BuildCombinations(keys, lists)

	paths := make([]PathRecord, 0, len(combos))
	for _, combo := range combos {
		result, err := target.Call(combo)

		var arity *ArityError
		if errors.As(err, &arity) {
			if len(combo) != 1 {
				return nil, err
			}
			result, err = target.CallPositional(combo[keys[0]])
			if errors.As(err, &arity) {
				return nil, err
			}
		}

		rec := PathRecord{Constraints: constraintsFor(keys, combo)}
		if err != nil {
			rec.Exception = err.Error()
		} else {
			rec.Result = sanitizeResult(result)
		}
		paths = append(paths, rec)
	}

	return &PathReport{
		Paths: paths,
		Metadata: Metadata{
			Evaluations:    len(paths),
			FunctionName:   target.Name(),
			ParameterNames: keys,
		},
	}, nil
}

// GenerateTree 在 EnumeratePaths 之上将路径记录重新编号为 0..n-1 的节点。
// 节点 ID 等于记录在枚举序中的下标;无路径时 Root 为 nil,否则为 0。
func GenerateTree(target Target, inputs map[string]interface{}) (*SymbolicTree, error) {
	report, err := EnumeratePaths(target, inputs)
	if err != nil {
		return nil, err
	}

	nodes := make([]TreeNode, 0, len(report.Paths))
	for i, p := range report.Paths {
		nodes = append(nodes, TreeNode{ID: i, PathRecord: p})
	}

	var root *int
	if len(nodes) > 0 {
		zero := 0
		root = &zero
	}

	return &SymbolicTree{
		Nodes:    nodes,
		Root:     root,
		Metadata: report.Metadata,
	}, nil
}
