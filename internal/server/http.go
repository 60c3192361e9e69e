package server

import (
	"context"
	"fmt"
	"time"

	"sms-service/internal/conf"
	"sms-service/internal/service"

	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(c *conf.Bootstrap, smsService *service.SmsService) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Server != nil && c.Server.Http != nil {
		if c.Server.Http.Network != "" {
			opts = append(opts, http.Network(c.Server.Http.Network))
		}
		if c.Server.Http.Addr != "" {
			opts = append(opts, http.Address(c.Server.Http.Addr))
		}
		if c.Server.Http.TimeoutSeconds > 0 {
			opts = append(opts, http.Timeout(time.Duration(c.Server.Http.TimeoutSeconds)*time.Second))
		}
	}
	srv := http.NewServer(opts...)
	registerSmsRoutes(srv, smsService)
	return srv
}

// registerSmsRoutes 注册 HTTP 路由
// 额度重置不对外暴露，由 cmd/cron 定时执行
func registerSmsRoutes(srv *http.Server, svc *service.SmsService) {
	r := srv.Route("/")

	r.POST("/v1/sms/send", func(ctx http.Context) error {
		var req service.SendBatchRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.SendBatch(ctx, &req)
		})
		reply, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/v1/sms/quota", func(ctx http.Context) error {
		accountID := ctx.Query().Get("account_id")
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.GetQuota(ctx, accountID)
		})
		reply, err := h(ctx, accountID)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/v1/sms/attempts", func(ctx http.Context) error {
		var req service.ListAttemptsRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.ListAttempts(ctx, &req)
		})
		reply, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/v1/sms/attempts/export", func(ctx http.Context) error {
		var req service.ListAttemptsRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.ExportAttemptsCSV(ctx, &req)
		})
		reply, err := h(ctx, &req)
		if err != nil {
			return err
		}
		filename := fmt.Sprintf("attempts_%s.csv", time.Now().Format("20060102150405"))
		ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+filename)
		return ctx.Blob(200, "text/csv; charset=utf-8", reply.([]byte))
	})

	r.GET("/v1/sms/stats", func(ctx http.Context) error {
		var req service.StatsRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.GetStats(ctx, &req)
		})
		reply, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/v1/sms/delivery-callback", func(ctx http.Context) error {
		var req service.DeliveryCallbackRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.DeliveryCallback(ctx, &req)
		})
		reply, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/v1/wallet/packs", func(ctx http.Context) error {
		var req service.PurchasePackRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.PurchasePack(ctx, &req)
		})
		reply, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/v1/wallet/packs/callback", func(ctx http.Context) error {
		var req service.PackCallbackRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.PackCallback(ctx, &req)
		})
		reply, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/v1/wallet/opening-bonus", func(ctx http.Context) error {
		var req service.OpeningBonusRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.GrantOpeningBonus(ctx, &req)
		})
		reply, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/v1/wallet/affiliate-credit", func(ctx http.Context) error {
		var req service.AffiliateCreditRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.CreditAffiliate(ctx, &req)
		})
		reply, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
}
