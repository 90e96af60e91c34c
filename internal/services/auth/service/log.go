package service

import "go.uber.org/zap"

func zapUser(userID string) zap.Field { return zap.String("user_id", userID) }

func zapErr(err error) zap.Field { return zap.Error(err) }
