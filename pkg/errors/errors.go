package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrRunLocked 薪资运行正在被其他进程处理
var ErrRunLocked = errors.New("该薪资运行正在处理中，请稍后重试")
