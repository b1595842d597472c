package grpc

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func dialHealth(s *Server) (healthpb.HealthClient, func(), error) {
	port := s.Addr().(*net.TCPAddr).Port
	conn, err := grpc.NewClient(fmt.Sprintf("127.0.0.1:%d", port),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return healthpb.NewHealthClient(conn), func() { _ = conn.Close() }, nil
}

func check(client healthpb.HealthClient, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

func TestServer_Health(t *testing.T) {
	Convey("Given a running gRPC server on an ephemeral port", t, func() {
		server, err := NewServer(&Config{Port: 0})
		So(err, ShouldBeNil)

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()

		client, closeConn, err := dialHealth(server)
		So(err, ShouldBeNil)
		defer closeConn()

		Convey("Then the overall and upstream services start SERVING", func() {
			status, err := check(client, "")
			So(err, ShouldBeNil)
			So(status, ShouldEqual, healthpb.HealthCheckResponse_SERVING)

			status, err = check(client, UpstreamService)
			So(err, ShouldBeNil)
			So(status, ShouldEqual, healthpb.HealthCheckResponse_SERVING)
		})

		Convey("When the upstream turns unhealthy", func() {
			server.SetUpstreamServing(false)

			Convey("Then only the upstream service reports NOT_SERVING", func() {
				status, err := check(client, UpstreamService)
				So(err, ShouldBeNil)
				So(status, ShouldEqual, healthpb.HealthCheckResponse_NOT_SERVING)

				status, err = check(client, "")
				So(err, ShouldBeNil)
				So(status, ShouldEqual, healthpb.HealthCheckResponse_SERVING)
			})

			Convey("And recovers when it is healthy again", func() {
				server.SetUpstreamServing(true)
				status, err := check(client, UpstreamService)
				So(err, ShouldBeNil)
				So(status, ShouldEqual, healthpb.HealthCheckResponse_SERVING)
			})
		})

		Convey("Then an unknown service is rejected", func() {
			_, err := check(client, "nope")
			So(err, ShouldNotBeNil)
		})

		Reset(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
			<-errCh
		})
	})
}
