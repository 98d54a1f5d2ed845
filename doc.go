// Package compose 把依赖注入容器、配置、日志和托管服务组合成一个应用运行时。
//
// 使用示例:
//
//	cfg, _ := config.NewConfigurationBuilder().AddYamlFile("app.yaml", true).Build()
//	err := compose.Run(context.Background(), cfg,
//		compose.Database("database"),
//		compose.Redis("redis"),
//		compose.Web(web.WithPort(8080), web.WithControllers(NewUserController)),
//	)
package compose
