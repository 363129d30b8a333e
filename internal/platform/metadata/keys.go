package metadata

// metadata 表中使用的键
const (
	// LastReconcileAtKey 记录最近一次对账完成的时间(RFC3339Nano)
	LastReconcileAtKey = "last_reconcile_at"

	// LastReconcileRemovedKey 记录最近一次对账删除的孤儿正文数量
	LastReconcileRemovedKey = "last_reconcile_removed"

	// LastReconcileDanglingKey 记录最近一次对账发现的、正文缺失的笔记数量
	LastReconcileDanglingKey = "last_reconcile_dangling"
)
