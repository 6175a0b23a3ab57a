// Package store 提供问答服务的向量存储层。
//
// 该包定义了按租户隔离的向量存储接口和 Milvus 实现，
// 支持片段的幂等注册、存在性检查和 Top-K 相似度检索。
package store
