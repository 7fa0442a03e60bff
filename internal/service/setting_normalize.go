package service

import (
	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/models"
)

// normalizeSettingValueByKey 按设置键执行归一化，避免非法值入库。
func normalizeSettingValueByKey(key string, value map[string]interface{}) models.JSON {
	switch key {
	case constants.SettingKeyPointsConfig:
		return normalizePointsSetting(value)
	default:
		return models.JSON(value)
	}
}

// normalizePointsSetting 归一化积分配置：基于内置默认值合并后整体回写。
func normalizePointsSetting(value map[string]interface{}) models.JSON {
	return DefaultPointPolicy().mergeSetting(models.JSON(value)).ToSetting()
}
