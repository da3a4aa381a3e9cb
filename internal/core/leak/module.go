package leak

import "go.uber.org/fx"

// Module 返回泄漏分类器模块
func Module() fx.Option {
	return fx.Module("leak",
		fx.Provide(func(cfg Config) (*Classifier, error) {
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return NewClassifier(cfg), nil
		}),
	)
}
