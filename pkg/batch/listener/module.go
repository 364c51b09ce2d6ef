package listener

import "go.uber.org/fx"

// GroupTag collects the batch listeners provided to the application.
const GroupTag = `group:"batchListeners"`

// AsBatchListener annotates a constructor so its result joins the batch listener group.
func AsBatchListener(constructor interface{}) fx.Option {
	return fx.Provide(fx.Annotate(constructor, fx.ResultTags(GroupTag)))
}
