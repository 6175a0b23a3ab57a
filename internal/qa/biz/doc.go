// Package biz 实现问答服务的业务层。
//
// 核心是检索-归因流水线：问题嵌入 → 租户内 Top-K 检索 →
// 逐结果答案定位（并行）→ 答案生成 → 参考资料后处理 →
// 视频来源的时间戳归因。
package biz
