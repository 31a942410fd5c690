// Package server 提供仪表盘的 HTTP 接口。
//
// 路由(均只接受 GET):
//
//	/                          仪表盘页面
//	/api/v1/options            分类选项、权重预设、滑块范围
//	/api/v1/repos              完整数据集
//	/api/v1/overview           概要 + 三张静态图
//	/api/v1/rank               排名表 + 影响力散点
//	/api/v1/rank/export.xlsx   排名表导出为 Excel
//	/api/v1/search             按关键词搜索
//	/ws                        WebSocket，实时计算排名
package server
